package model

import "strings"

const FilterAll = "all"

// Date presets accepted by Filter.Date.
const (
	DateToday     = "today"
	DateYesterday = "yesterday"
	DateTomorrow  = "tomorrow"
	DateLast30    = "last30"
)

var DatePresets = []string{FilterAll, DateToday, DateYesterday, DateTomorrow, DateLast30}

// Filter is the active conjunctive filter set. Each field is "all" (or empty) or a concrete value.
type Filter struct {
	Date    string `json:"date"`
	Branch  string `json:"branch"`
	Staff   string `json:"staff"`
	Status  string `json:"status"`
	Service string `json:"service"`
}

func DefaultFilter() Filter {
	return Filter{Date: FilterAll, Branch: FilterAll, Staff: FilterAll, Status: FilterAll, Service: FilterAll}
}

func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}

// Active reports whether any field restricts the list.
func (f Filter) Active() bool {
	return !IsAll(f.Date) || !IsAll(f.Branch) || !IsAll(f.Staff) || !IsAll(f.Status) || !IsAll(f.Service)
}

// Query renders the filter as backend query parameters, omitting "all" fields.
func (f Filter) Query() map[string]string {
	q := map[string]string{}
	add := func(k, v string) {
		if !IsAll(v) {
			q[k] = strings.TrimSpace(v)
		}
	}
	add("date", f.Date)
	add("branch", f.Branch)
	add("staff", f.Staff)
	add("status", f.Status)
	add("service", f.Service)
	return q
}
