package domain

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

// RootName is the implicit name of the top of every footprint path.
const RootName = "root"

// MinComparedFoods is the smallest selection that can be compared.
const MinComparedFoods = 2

// FoodNode is one node of a footprint tree. Leaves are foods.
type FoodNode struct {
	Name     string      `json:"name"`
	Value    float64     `json:"value,omitempty"`
	Children []*FoodNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *FoodNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// ParseFoodTree decodes a footprint tree.
func ParseFoodTree(data []byte) (*FoodNode, error) {
	var root FoodNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse food tree: %w", err)
	}
	return &root, nil
}

// Leaves returns every leaf below n in depth-first order.
func Leaves(n *FoodNode) []*FoodNode {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return []*FoodNode{n}
	}
	var out []*FoodNode
	for _, c := range n.Children {
		out = append(out, Leaves(c)...)
	}
	return out
}

// FindPath returns the path from "root" to the first node named name, or
// nil when there is none. The root itself matches with path ["root"].
func FindPath(n *FoodNode, name string) []string {
	return findPath(n, name, []string{RootName})
}

func findPath(n *FoodNode, name string, path []string) []string {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return path
	}
	for _, c := range n.Children {
		next := append(slices.Clone(path), c.Name)
		if p := findPath(c, name, next); p != nil {
			return p
		}
	}
	return nil
}

// NodeAtPath walks path from n. The first element names the root and is
// not matched. An empty path or ["root"] returns n.
func NodeAtPath(n *FoodNode, path []string) *FoodNode {
	cur := n
	for i := 1; i < len(path) && cur != nil; i++ {
		var next *FoodNode
		for _, c := range cur.Children {
			if c.Name == path[i] {
				next = c
				break
			}
		}
		cur = next
	}
	return cur
}

// Aggregate returns a copy of the tree where every inner node's value is the
// sum of its leaves and children are sorted by value, largest first.
func Aggregate(n *FoodNode) *FoodNode {
	if n == nil {
		return nil
	}
	out := &FoodNode{Name: n.Name, Value: n.Value}
	if n.IsLeaf() {
		return out
	}
	out.Value = 0
	out.Children = make([]*FoodNode, len(n.Children))
	for i, c := range n.Children {
		out.Children[i] = Aggregate(c)
		out.Value += out.Children[i].Value
	}
	slices.SortStableFunc(out.Children, func(a, b *FoodNode) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return out
}

// Food is a leaf of the carbon tree joined with its water footprint.
type Food struct {
	Name   string   `json:"name"`
	Carbon float64  `json:"carbon"`
	Water  *float64 `json:"water"`
	Path   []string `json:"path"`
}

// BuildFoodIndex joins carbon leaves with water leaves by name. Foods with no
// water counterpart keep a nil Water.
func BuildFoodIndex(carbon, water *FoodNode) []Food {
	waterByName := make(map[string]float64)
	for _, leaf := range Leaves(water) {
		if _, ok := waterByName[leaf.Name]; !ok {
			waterByName[leaf.Name] = leaf.Value
		}
	}

	leaves := Leaves(carbon)
	foods := make([]Food, 0, len(leaves))
	for _, leaf := range leaves {
		f := Food{
			Name:   leaf.Name,
			Carbon: leaf.Value,
			Path:   FindPath(carbon, leaf.Name),
		}
		if w, ok := waterByName[leaf.Name]; ok {
			f.Water = &w
		}
		foods = append(foods, f)
	}
	return foods
}

// FoodComparison holds the side-by-side carbon and water series.
type FoodComparison struct {
	Labels []string   `json:"labels"`
	Carbon []float64  `json:"carbon"`
	Water  []*float64 `json:"water"`
}

// CompareFoods selects foods by name in order, ignoring repeats. At least
// MinComparedFoods distinct foods are required.
func CompareFoods(index []Food, names []string) (FoodComparison, error) {
	byName := make(map[string]Food, len(index))
	for _, f := range index {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}

	cmpr := FoodComparison{Labels: []string{}, Carbon: []float64{}, Water: []*float64{}}
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		if picked[name] {
			continue
		}
		f, ok := byName[name]
		if !ok {
			return FoodComparison{}, fmt.Errorf("%w: %q", ErrUnknownFood, name)
		}
		picked[name] = true
		cmpr.Labels = append(cmpr.Labels, f.Name)
		cmpr.Carbon = append(cmpr.Carbon, f.Carbon)
		cmpr.Water = append(cmpr.Water, f.Water)
	}

	if len(cmpr.Labels) < MinComparedFoods {
		return FoodComparison{}, fmt.Errorf("%w: select at least %d foods, got %d", ErrInvalidQuery, MinComparedFoods, len(cmpr.Labels))
	}
	return cmpr, nil
}
