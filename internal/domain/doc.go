// Package domain models FAO-style agricultural statistics and the food
// footprint trees behind the crop maps.
//
// # Data Source
//
// The merged dataset is a single CSV published alongside the visualization
// project. Each row describes one (area, commodity, element) triple and
// carries one column per year:
//
//	Area,Item,food_commodity_typology,Element,Unit,1961,1962,...,2023
//	France,Rice,Cereals,area harvested,ha,21000,,...,15880
//
// Descriptive columns:
//
//	Area                     country or region name, matched case-insensitively
//	                         against the geography name lookup
//	Item                     commodity name, e.g. "Rice"
//	food_commodity_typology  broader category, used when no Item matches
//	Element                  measurement kind, e.g. "area harvested",
//	                         "production", "animals slaughtered"
//	Unit                     unit string, e.g. "ha", "t", "An"
//
// Year columns are four-digit names. Empty cells are null and are kept
// out of [Record.Values]; zero is a real value but is never styled.
//
// # Normalization
//
// A [Snapshot] is built for one selected year. The default scale is
// logarithmic with an offset of 1 so zeros and small values stay finite:
//
//	score = (ln(v+1) - ln(min+1)) / (ln(max+1) - ln(min+1)), clamped to [0,1]
//
// A dataset with a single distinct value (min == max) scores 1. A year with
// no values produces an explicitly empty snapshot with NoData set.
//
// # Food Trees
//
// Carbon and water footprints arrive as nested JSON nodes
// ({"name", "value", "children"}). Leaves are foods; inner nodes are
// categories. The two trees are joined on leaf name.
package domain
