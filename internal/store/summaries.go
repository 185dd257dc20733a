package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"focustrack/internal/model"
)

// AppSummaries sums non-idle focus time per app for sessions starting at or
// after since, longest first.
func (s *Store) AppSummaries(ctx context.Context, since time.Time) ([]model.AppSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT a.id, a.bundle_id, a.app_name, SUM(l.end_time - l.start_time) AS seconds
FROM activity_logs l
JOIN apps a ON a.id = l.app_id
WHERE l.start_time >= ? AND l.is_idle = 0
GROUP BY a.id
ORDER BY seconds DESC
`, epoch(since))
	if err != nil {
		return nil, fmt.Errorf("query app summaries: %w", err)
	}
	defer rows.Close()

	out := make([]model.AppSummary, 0)
	for rows.Next() {
		var summary model.AppSummary
		if err := rows.Scan(&summary.AppID, &summary.BundleID, &summary.AppName, &summary.Seconds); err != nil {
			return nil, fmt.Errorf("scan app summary: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter app summaries: %w", err)
	}
	return out, nil
}

// TagSummaries sums non-idle focus time per effective tag for sessions
// starting in [from, to). The effective tag is the session override when set,
// otherwise the app default; sessions with neither land in the "none" bucket.
// A session counts fully toward the bucket its start falls in, even when it
// ends past to.
func (s *Store) TagSummaries(ctx context.Context, from, to time.Time) ([]model.TagSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT t.id, t.name, t.color_light, t.color_dark, SUM(l.end_time - l.start_time) AS seconds
FROM activity_logs l
JOIN apps a ON a.id = l.app_id
LEFT JOIN tags t ON t.id = COALESCE(l.tag_id, a.default_tag_id)
WHERE l.start_time >= ? AND l.start_time < ? AND l.is_idle = 0
GROUP BY t.id
ORDER BY seconds DESC
`, epoch(from), epoch(to))
	if err != nil {
		return nil, fmt.Errorf("query tag summaries: %w", err)
	}
	defer rows.Close()

	out := make([]model.TagSummary, 0)
	for rows.Next() {
		summary, err := scanTagSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter tag summaries: %w", err)
	}
	return out, nil
}

// HourlyTagSummaries buckets day's non-idle sessions into the 24 local hours
// of that day, keyed by each session's start hour.
func (s *Store) HourlyTagSummaries(ctx context.Context, day time.Time) ([24][]model.TagSummary, error) {
	var out [24][]model.TagSummary
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := s.taggedSessionRows(ctx, startOfDay, startOfDay.AddDate(0, 0, 1))
	if err != nil {
		return out, err
	}

	buckets := make(map[int]map[int64]*model.TagSummary)
	for _, row := range rows {
		hour := row.start.In(day.Location()).Hour()
		if buckets[hour] == nil {
			buckets[hour] = make(map[int64]*model.TagSummary)
		}
		accumulate(buckets[hour], row)
	}
	for hour, byTag := range buckets {
		out[hour] = sortedSummaries(byTag)
	}
	return out, nil
}

// DailyTagSummaries buckets non-idle sessions starting in [from, to) by
// local calendar day, oldest day first.
func (s *Store) DailyTagSummaries(ctx context.Context, from, to time.Time) ([]model.DailyTagSummary, error) {
	rows, err := s.taggedSessionRows(ctx, from, to)
	if err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]map[int64]*model.TagSummary)
	for _, row := range rows {
		start := row.start.In(from.Location())
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, from.Location())
		if buckets[day] == nil {
			buckets[day] = make(map[int64]*model.TagSummary)
		}
		accumulate(buckets[day], row)
	}

	days := make([]time.Time, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]model.DailyTagSummary, 0, len(days))
	for _, day := range days {
		out = append(out, model.DailyTagSummary{Day: day, Tags: sortedSummaries(buckets[day])})
	}
	return out, nil
}

type taggedSessionRow struct {
	start      time.Time
	seconds    float64
	tagID      *int64
	name       string
	colorLight string
	colorDark  string
}

func (s *Store) taggedSessionRows(ctx context.Context, from, to time.Time) ([]taggedSessionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT l.start_time, l.end_time - l.start_time, t.id, t.name, t.color_light, t.color_dark
FROM activity_logs l
JOIN apps a ON a.id = l.app_id
LEFT JOIN tags t ON t.id = COALESCE(l.tag_id, a.default_tag_id)
WHERE l.start_time >= ? AND l.start_time < ? AND l.is_idle = 0
`, epoch(from), epoch(to))
	if err != nil {
		return nil, fmt.Errorf("query tagged sessions: %w", err)
	}
	defer rows.Close()

	out := make([]taggedSessionRow, 0)
	for rows.Next() {
		var (
			row        taggedSessionRow
			start      float64
			tagID      sql.NullInt64
			name       sql.NullString
			colorLight sql.NullString
			colorDark  sql.NullString
		)
		if err := rows.Scan(&start, &row.seconds, &tagID, &name, &colorLight, &colorDark); err != nil {
			return nil, fmt.Errorf("scan tagged session: %w", err)
		}
		row.start = fromEpoch(start)
		if tagID.Valid {
			v := tagID.Int64
			row.tagID = &v
			row.name = name.String
			row.colorLight = colorLight.String
			row.colorDark = colorDark.String
		} else {
			row.name = model.UntaggedName
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter tagged sessions: %w", err)
	}
	return out, nil
}

func accumulate(byTag map[int64]*model.TagSummary, row taggedSessionRow) {
	key := int64(-1)
	if row.tagID != nil {
		key = *row.tagID
	}
	summary, ok := byTag[key]
	if !ok {
		summary = &model.TagSummary{
			TagID:      row.tagID,
			Name:       row.name,
			ColorLight: row.colorLight,
			ColorDark:  row.colorDark,
		}
		byTag[key] = summary
	}
	summary.Seconds += row.seconds
}

func sortedSummaries(byTag map[int64]*model.TagSummary) []model.TagSummary {
	out := make([]model.TagSummary, 0, len(byTag))
	for _, summary := range byTag {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func scanTagSummary(scanner interface{ Scan(dest ...any) error }) (model.TagSummary, error) {
	var (
		summary    model.TagSummary
		tagID      sql.NullInt64
		name       sql.NullString
		colorLight sql.NullString
		colorDark  sql.NullString
	)
	if err := scanner.Scan(&tagID, &name, &colorLight, &colorDark, &summary.Seconds); err != nil {
		return model.TagSummary{}, fmt.Errorf("scan tag summary: %w", err)
	}
	if tagID.Valid {
		v := tagID.Int64
		summary.TagID = &v
		summary.Name = name.String
		summary.ColorLight = colorLight.String
		summary.ColorDark = colorDark.String
	} else {
		summary.Name = model.UntaggedName
	}
	return summary, nil
}
