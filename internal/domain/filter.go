package domain

// FilterByElement keeps records whose Element equals element exactly.
func FilterByElement(records []Record, element string) []Record {
	return filter(records, func(r Record) bool { return r.Element == element })
}

// FilterByItem keeps records whose Item equals item. When no Item matches,
// food_commodity_typology is used instead. No match on either field yields
// an empty result.
func FilterByItem(records []Record, item string) []Record {
	out := filter(records, func(r Record) bool { return r.Item == item })
	if len(out) > 0 {
		return out
	}
	return filter(records, func(r Record) bool { return r.Typology == item })
}

// Select applies FilterByElement followed by FilterByItem.
func Select(records []Record, item, element string) []Record {
	return FilterByItem(FilterByElement(records, element), item)
}

func filter(records []Record, keep func(Record) bool) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
