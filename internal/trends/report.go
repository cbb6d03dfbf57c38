package trends

import (
	"sort"
	"strconv"
	"time"
)

// Rate is one bar of a chart: how many appointments fell in the group and
// how many of them were missed.
type Rate struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	NoShows int     `json:"no_shows"`
	Rate    float64 `json:"rate"`
}

type Report struct {
	Total         int     `json:"total"`
	NoShows       int     `json:"no_shows"`
	OverallRate   float64 `json:"overall_rate_percent"`
	Daily         []Rate  `json:"daily"`
	Weekday       []Rate  `json:"weekday"`
	Neighbourhood []Rate  `json:"neighbourhood"`
	AgeGroup      []Rate  `json:"age_group"`
	Gender        []Rate  `json:"gender"`
	SMS           []Rate  `json:"sms"`
	// Hourly is a count of no-shows, not a rate.
	Hourly []Rate `json:"hourly"`
}

// TopNeighbourhoods caps the neighbourhood chart.
const TopNeighbourhoods = 10

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

type ageBucket struct {
	label    string
	min, max int
}

// Buckets are inclusive on both ends so that each label reads literally:
// 12 is in "0-12", 13 in "13-18".
var ageBuckets = []ageBucket{
	{"0-12", 0, 12},
	{"13-18", 13, 18},
	{"19-30", 19, 30},
	{"31-45", 31, 45},
	{"46-60", 46, 60},
	{"61-75", 61, 75},
	{"76-100", 76, 100},
}

// AgeBucket returns the label for age, or false outside 0..100.
func AgeBucket(age int) (string, bool) {
	for _, b := range ageBuckets {
		if age >= b.min && age <= b.max {
			return b.label, true
		}
	}
	return "", false
}

type tally struct {
	count, noShows int
}

func (t *tally) add(noShow bool) {
	t.count++
	if noShow {
		t.noShows++
	}
}

func (t tally) rate(label string) Rate {
	r := Rate{Label: label, Count: t.count, NoShows: t.noShows}
	if t.count > 0 {
		r.Rate = float64(t.noShows) / float64(t.count)
	}
	return r
}

func Build(ds *Dataset) *Report {
	var (
		overall   tally
		daily     = map[time.Time]*tally{}
		weekday   = map[time.Weekday]*tally{}
		neighbour = map[string]*tally{}
		age       = map[string]*tally{}
		gender    = map[string]*tally{}
		sms       = map[int]*tally{}
		hourly    = map[int]*tally{}
	)
	bump := func(m map[string]*tally, k string, noShow bool) {
		if m[k] == nil {
			m[k] = &tally{}
		}
		m[k].add(noShow)
	}

	for _, r := range ds.Records {
		overall.add(r.NoShow)

		if daily[r.AppointmentDay] == nil {
			daily[r.AppointmentDay] = &tally{}
		}
		daily[r.AppointmentDay].add(r.NoShow)

		wd := r.AppointmentDay.Weekday()
		if weekday[wd] == nil {
			weekday[wd] = &tally{}
		}
		weekday[wd].add(r.NoShow)

		bump(neighbour, r.Neighbourhood, r.NoShow)
		bump(gender, r.Gender, r.NoShow)
		if label, ok := AgeBucket(r.Age); ok {
			bump(age, label, r.NoShow)
		}

		if sms[r.SMSReceived] == nil {
			sms[r.SMSReceived] = &tally{}
		}
		sms[r.SMSReceived].add(r.NoShow)

		if hourly[r.AppointmentHour] == nil {
			hourly[r.AppointmentHour] = &tally{}
		}
		hourly[r.AppointmentHour].add(r.NoShow)
	}

	rep := &Report{Total: overall.count, NoShows: overall.noShows}
	rep.OverallRate = overall.rate("").Rate * 100

	days := make([]time.Time, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	for _, d := range days {
		rep.Daily = append(rep.Daily, daily[d].rate(d.Format("2006-01-02")))
	}

	for _, wd := range weekdayOrder {
		if t, ok := weekday[wd]; ok {
			rep.Weekday = append(rep.Weekday, t.rate(wd.String()))
		}
	}

	rep.Neighbourhood = sortedRates(neighbour)
	sort.SliceStable(rep.Neighbourhood, func(i, j int) bool {
		return rep.Neighbourhood[i].Rate > rep.Neighbourhood[j].Rate
	})
	if len(rep.Neighbourhood) > TopNeighbourhoods {
		rep.Neighbourhood = rep.Neighbourhood[:TopNeighbourhoods]
	}

	for _, b := range ageBuckets {
		t := tally{}
		if a, ok := age[b.label]; ok {
			t = *a
		}
		rep.AgeGroup = append(rep.AgeGroup, t.rate(b.label))
	}

	rep.Gender = sortedRates(gender)

	for _, flag := range sortedKeys(sms) {
		label := strconv.Itoa(flag)
		switch flag {
		case 0:
			label = "No"
		case 1:
			label = "Yes"
		}
		rep.SMS = append(rep.SMS, sms[flag].rate(label))
	}

	for _, h := range sortedKeys(hourly) {
		rep.Hourly = append(rep.Hourly, hourly[h].rate(strconv.Itoa(h)))
	}
	return rep
}

// sortedRates returns one Rate per key in label order.
func sortedRates(m map[string]*tally) []Rate {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	out := make([]Rate, 0, len(labels))
	for _, l := range labels {
		out = append(out, m[l].rate(l))
	}
	return out
}

func sortedKeys(m map[int]*tally) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
