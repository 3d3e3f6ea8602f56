// ABOUTME: Aggregates pain entries into chart-ready series.
// ABOUTME: Produces the daily timeline, per-region series, and questionnaire breakdowns.
package history

import (
	"sort"
	"time"

	"github.com/harperreed/painlog/internal/models"
	"github.com/samber/lo"
)

// Options controls calendar bucketing.
type Options struct {
	// Location decides which calendar day an entry falls on. Defaults to UTC.
	Location *time.Location
}

// Summary is the full history view for one user.
type Summary struct {
	Empty        bool              `json:"empty"`
	TotalEntries int               `json:"totalEntries"`
	BodyParts    []models.BodyPart `json:"bodyParts"`
	Timeline     []TimelineRow     `json:"timeline"`
	Series       []BodyPartSeries  `json:"series"`
	Durations    []DurationCount   `json:"durations"`
	Sleep        []SleepAverage    `json:"sleep"`
	Relief       []ReliefRank      `json:"relief"`
}

// TimelineRow holds every region's intensity recorded on one calendar day.
type TimelineRow struct {
	Date   string                  `json:"date"`
	Label  string                  `json:"label"`
	Levels map[models.BodyPart]int `json:"levels"`
}

// Point is one recorded intensity in a region's series.
type Point struct {
	At        time.Time `json:"at"`
	Label     string    `json:"label"`
	PainLevel int       `json:"painLevel"`
}

// BodyPartSeries is the chronological history of a single region.
type BodyPartSeries struct {
	BodyPart      models.BodyPart `json:"bodyPart"`
	Label         string          `json:"label"`
	Points        []Point         `json:"points"`
	Count         int             `json:"count"`
	LastPainLevel int             `json:"lastPainLevel"`
}

// DurationCount is how many records reported a duration bucket.
type DurationCount struct {
	Duration models.Duration `json:"duration"`
	Label    string          `json:"label"`
	Count    int             `json:"count"`
}

// SleepAverage is the mean intensity reported with a sleep category.
type SleepAverage struct {
	SleepQuality models.SleepQuality `json:"sleepQuality"`
	Label        string              `json:"label"`
	Rank         int                 `json:"rank"`
	AveragePain  float64             `json:"averagePain"`
	Count        int                 `json:"count"`
}

// ReliefRank counts how often a relief method preceded an improvement.
type ReliefRank struct {
	Relief   models.PainRelief `json:"relief"`
	Label    string            `json:"label"`
	Count    int               `json:"count"`
	LastUsed time.Time         `json:"lastUsed"`
}

type record struct {
	entry *models.PainEntry
	at    time.Time
	form  *models.Questionnaire
}

// Summarize builds the history view. The input slice is not modified and
// may be in any order.
func Summarize(entries []*models.PainEntry, opts Options) *Summary {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	if len(entries) == 0 {
		return &Summary{
			Empty:     true,
			BodyParts: []models.BodyPart{},
			Timeline:  []TimelineRow{},
			Series:    []BodyPartSeries{},
			Durations: []DurationCount{},
			Sleep:     []SleepAverage{},
			Relief:    []ReliefRank{},
		}
	}

	records := lo.Map(entries, func(e *models.PainEntry, _ int) record {
		return record{entry: e, at: e.CreatedAt.In(loc), form: e.Questionnaire()}
	})
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].at.Before(records[j].at)
	})

	series := buildSeries(records)

	return &Summary{
		TotalEntries: len(records),
		BodyParts:    lo.Map(series, func(s BodyPartSeries, _ int) models.BodyPart { return s.BodyPart }),
		Timeline:     buildTimeline(records),
		Series:       series,
		Durations:    buildDurations(records),
		Sleep:        buildSleep(records),
		Relief:       buildRelief(records),
	}
}

// buildTimeline merges records into one row per calendar day.
// A later record for the same region on the same day overwrites the earlier one.
func buildTimeline(records []record) []TimelineRow {
	rows := []TimelineRow{}
	index := make(map[string]int)

	for _, r := range records {
		date := r.at.Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			rows = append(rows, TimelineRow{
				Date:   date,
				Label:  r.at.Format("02/01"),
				Levels: make(map[models.BodyPart]int),
			})
			i = len(rows) - 1
			index[date] = i
		}
		rows[i].Levels[r.entry.BodyPart] = r.entry.PainLevel
	}
	return rows
}

// buildSeries groups records by region in head-to-feet order.
// Regions outside the vocabulary are appended in first-seen order.
func buildSeries(records []record) []BodyPartSeries {
	grouped := lo.GroupBy(records, func(r record) models.BodyPart { return r.entry.BodyPart })

	order := append([]models.BodyPart{}, models.AllBodyParts...)
	for _, r := range records {
		if !lo.Contains(order, r.entry.BodyPart) {
			order = append(order, r.entry.BodyPart)
		}
	}

	out := []BodyPartSeries{}
	for _, bp := range order {
		group, ok := grouped[bp]
		if !ok {
			continue
		}
		points := lo.Map(group, func(r record, _ int) Point {
			return Point{At: r.at, Label: r.at.Format("02/01"), PainLevel: r.entry.PainLevel}
		})
		out = append(out, BodyPartSeries{
			BodyPart:      bp,
			Label:         bp.Label(),
			Points:        points,
			Count:         len(points),
			LastPainLevel: points[len(points)-1].PainLevel,
		})
	}
	return out
}

// buildDurations counts duration answers in bucket order, skipping empty buckets.
func buildDurations(records []record) []DurationCount {
	counts := lo.CountValuesBy(
		lo.Filter(records, func(r record, _ int) bool { return r.form != nil && r.form.Duration != "" }),
		func(r record) models.Duration { return models.Duration(r.form.Duration) },
	)

	out := []DurationCount{}
	for _, d := range models.AllDurations {
		if n := counts[d]; n > 0 {
			out = append(out, DurationCount{Duration: d, Label: d.Label(), Count: n})
		}
	}
	return out
}

// buildSleep averages intensity per sleep category, best sleep first.
func buildSleep(records []record) []SleepAverage {
	grouped := lo.GroupBy(
		lo.Filter(records, func(r record, _ int) bool {
			return r.form != nil && models.IsValidSleepQuality(r.form.SleepQuality)
		}),
		func(r record) models.SleepQuality { return models.SleepQuality(r.form.SleepQuality) },
	)

	out := []SleepAverage{}
	for _, sq := range models.AllSleepQualities {
		group, ok := grouped[sq]
		if !ok {
			continue
		}
		total := lo.SumBy(group, func(r record) int { return r.entry.PainLevel })
		out = append(out, SleepAverage{
			SleepQuality: sq,
			Label:        sq.Label(),
			Rank:         sq.Rank(),
			AveragePain:  float64(total) / float64(len(group)),
			Count:        len(group),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank > out[j].Rank })
	return out
}

// buildRelief ranks relief methods reported alongside an improvement.
func buildRelief(records []record) []ReliefRank {
	improved := lo.Filter(records, func(r record, _ int) bool {
		if r.form == nil || r.form.PainComparison != string(models.ComparisonImproved) {
			return false
		}
		relief := r.form.PainRelief
		return relief != "" && relief != string(models.ReliefNothing)
	})

	grouped := lo.GroupBy(improved, func(r record) models.PainRelief { return models.PainRelief(r.form.PainRelief) })

	out := make([]ReliefRank, 0, len(grouped))
	for relief, group := range grouped {
		last := lo.MaxBy(group, func(a, b record) bool { return a.at.After(b.at) })
		out = append(out, ReliefRank{
			Relief:   relief,
			Label:    relief.Label(),
			Count:    len(group),
			LastUsed: last.at,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].Label < out[j].Label
	})
	return out
}
