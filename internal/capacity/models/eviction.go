package models

import "sort"

// SortByAdmission orders occupants first-come first-served; slot breaks ties
// between admissions stamped with the same instant.
func SortByAdmission(occupants []Occupant) {
	sort.SliceStable(occupants, func(i, j int) bool {
		a, b := occupants[i], occupants[j]
		if !a.AdmittedAt.Equal(b.AdmittedAt) {
			return a.AdmittedAt.Before(b.AdmittedAt)
		}
		return a.Slot < b.Slot
	})
}

// PlanEviction splits occupants into the first keep survivors and the evicted
// rest, and returns the highest surviving slot. occupants must already be
// sorted by admission.
func PlanEviction(occupants []Occupant, keep int) (kept, evicted []Occupant, lastSlot int) {
	if keep < 0 {
		keep = 0
	}
	if keep > len(occupants) {
		keep = len(occupants)
	}
	kept = occupants[:keep]
	evicted = occupants[keep:]
	for _, o := range kept {
		if o.Slot > lastSlot {
			lastSlot = o.Slot
		}
	}
	return kept, evicted, lastSlot
}
