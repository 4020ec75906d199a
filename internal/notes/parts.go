package notes

import "strings"

// Parts is a bitmask of playable instrument and vocal tracks detected in a
// song's notation data. Parts from multiple notation segments merge with
// union semantics.
type Parts uint8

// Individual part flags.
const (
	PartGuitar Parts = 1 << iota
	PartBass
	PartRhythm
	PartDrums
	PartKeys
	PartVocals
)

var partNames = []struct {
	flag Parts
	name string
}{
	{PartGuitar, "guitar"},
	{PartBass, "bass"},
	{PartRhythm, "rhythm"},
	{PartDrums, "drums"},
	{PartKeys, "keys"},
	{PartVocals, "vocals"},
}

// Has reports whether all parts in p2 are present in p.
func (p Parts) Has(p2 Parts) bool {
	return p&p2 == p2
}

// Union returns the parts present in either operand.
func (p Parts) Union(p2 Parts) Parts {
	return p | p2
}

// String renders the set as a comma-separated list, or "none".
func (p Parts) String() string {
	if p == 0 {
		return "none"
	}

	names := make([]string, 0, len(partNames))

	for _, pn := range partNames {
		if p.Has(pn.flag) {
			names = append(names, pn.name)
		}
	}

	return strings.Join(names, ",")
}

// PartByName returns the part flag for a lowercase name, or 0 if unknown.
func PartByName(name string) Parts {
	for _, pn := range partNames {
		if pn.name == name {
			return pn.flag
		}
	}

	return 0
}
