package song

import "songlib/internal/dta"

// MergeFragment layers an overlay fragment onto a base fragment and returns
// the merged tree. For each tagged child of the overlay:
//
//   - no base child with that tag: the overlay child is appended;
//   - both children carry a list payload: the payloads concatenate,
//     base elements first;
//   - otherwise the overlay child replaces the base child (later wins on
//     scalar fields).
//
// Untagged overlay children are appended as-is. Neither input is mutated.
func MergeFragment(base, overlay dta.Node) dta.Node {
	if base.Kind != dta.KindList || overlay.Kind != dta.KindList {
		return overlay
	}

	merged := dta.Node{Kind: dta.KindList, List: append([]dta.Node(nil), base.List...)}

	overlayChildren := overlay.List
	if overlay.TagName() != "" {
		// The leading short-name symbol is the fragment's identity, not a
		// field to merge.
		overlayChildren = overlayChildren[1:]
	}

	for _, overlayChild := range overlayChildren {
		tag := overlayChild.TagName()
		if tag == "" {
			merged.List = append(merged.List, overlayChild)

			continue
		}

		idx := findTagged(merged.List, tag)
		if idx < 0 {
			merged.List = append(merged.List, overlayChild)

			continue
		}

		if bothListPayload(merged.List[idx], overlayChild) {
			merged.List[idx] = concatPayload(merged.List[idx], overlayChild)
		} else if childrenAllTagged(merged.List[idx]) && childrenAllTagged(overlayChild) {
			// Nested structures (like the song sub-tree) merge recursively
			// so an update can override one field without clobbering the
			// rest.
			merged.List[idx] = MergeFragment(merged.List[idx], overlayChild)
		} else {
			merged.List[idx] = overlayChild
		}
	}

	return merged
}

// ApplyUpdates merges every update fragment onto base in discovery order
// and collects the updates' own notation overlays, also in order.
func ApplyUpdates(base dta.Node, updates []Fragment) (dta.Node, [][]byte) {
	merged := base

	var notations [][]byte

	for _, update := range updates {
		merged = MergeFragment(merged, update.Node)

		if update.Notation != nil {
			if bytes := update.Notation(); len(bytes) > 0 {
				notations = append(notations, bytes)
			}
		}
	}

	return merged, notations
}

// findTagged returns the index of the first list child with the given tag.
// Bare symbols report no tag, so a fragment's own short-name symbol never
// matches.
func findTagged(children []dta.Node, tag string) int {
	for i, child := range children {
		if child.TagName() == tag {
			return i
		}
	}

	return -1
}

// bothListPayload reports whether both tagged children carry a single list
// payload, e.g. `(tracks (guitar bass))`.
func bothListPayload(a, b dta.Node) bool {
	return singleListPayload(a) && singleListPayload(b)
}

func singleListPayload(n dta.Node) bool {
	return n.Kind == dta.KindList && len(n.List) == 2 && n.List[1].Kind == dta.KindList
}

func concatPayload(base, overlay dta.Node) dta.Node {
	payload := append([]dta.Node(nil), base.List[1].List...)
	payload = append(payload, overlay.List[1].List...)

	return dta.Node{Kind: dta.KindList, List: []dta.Node{
		base.List[0],
		{Kind: dta.KindList, List: payload},
	}}
}

// childrenAllTagged reports whether every element after the tag is itself a
// tagged list, i.e. the node is a struct-like sub-tree rather than a value.
func childrenAllTagged(n dta.Node) bool {
	if n.Kind != dta.KindList || len(n.List) < 2 {
		return false
	}

	for _, child := range n.List[1:] {
		if child.TagName() == "" {
			return false
		}
	}

	return true
}
