// Package taxonomy holds the immutable profit-and-loss category tree used by the categorization
// pipeline. The tree is built once per process and is safe for concurrent reads.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

var idNamespace = uuid.MustParse("6f1f4a57-2d3b-4c0e-9a57-5b1e0c8f7a21")

// NodeID derives the stable UUID of a category from its industry and slug.
func NodeID(industry, slug string) string {
	return uuid.NewSHA1(idNamespace, []byte(industry+"/"+slug)).String()
}

// Taxonomy is a validated, read-only set of category nodes.
type Taxonomy struct {
	bySlug   map[string]int
	byID     map[string]int
	industry string
	catchAll string
	nodes    []model.CategoryNode
}

// New builds a taxonomy from nodes and checks its invariants.
func New(industry string, nodes []model.CategoryNode, catchAllSlug string) (*Taxonomy, error) {
	t := &Taxonomy{
		industry: industry,
		catchAll: catchAllSlug,
		nodes:    append([]model.CategoryNode(nil), nodes...),
		bySlug:   make(map[string]int, len(nodes)),
		byID:     make(map[string]int, len(nodes)),
	}

	for i, n := range t.nodes {
		if _, dup := t.bySlug[n.Slug]; !dup {
			t.bySlug[n.Slug] = i
		}
		if _, dup := t.byID[n.ID]; !dup {
			t.byID[n.ID] = i
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

var ecommerce = sync.OnceValue(func() *Taxonomy {
	t, err := New(model.IndustryEcommerce, buildNodes(model.IndustryEcommerce, ecommerceSpec), SlugOtherOperations)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: invalid ecommerce taxonomy: %v", err))
	}
	return t
})

// Ecommerce returns the process-wide ecommerce taxonomy.
func Ecommerce() *Taxonomy {
	return ecommerce()
}

var industries = map[string]func() *Taxonomy{
	model.IndustryEcommerce: Ecommerce,
}

// ForIndustry returns the taxonomy for an industry. Unsupported industries get the ecommerce
// taxonomy.
func ForIndustry(industry string) *Taxonomy {
	if build, ok := industries[normalizeIndustry(industry)]; ok {
		return build()
	}
	return Ecommerce()
}

// IsSupportedIndustry reports whether industry has its own taxonomy and defaults.
func IsSupportedIndustry(industry string) bool {
	_, ok := industries[normalizeIndustry(industry)]
	return ok
}

func normalizeIndustry(industry string) string {
	return strings.ToLower(strings.TrimSpace(industry))
}

// Industry returns the industry the taxonomy was built for.
func (t *Taxonomy) Industry() string {
	return t.industry
}

// All returns every node in declaration order.
func (t *Taxonomy) All() []model.CategoryNode {
	return append([]model.CategoryNode(nil), t.nodes...)
}

// BySlug looks up a node by slug.
func (t *Taxonomy) BySlug(slug string) (model.CategoryNode, bool) {
	i, ok := t.bySlug[slug]
	if !ok {
		return model.CategoryNode{}, false
	}
	return t.nodes[i], true
}

// ByID looks up a node by id.
func (t *Taxonomy) ByID(id string) (model.CategoryNode, bool) {
	i, ok := t.byID[id]
	if !ok {
		return model.CategoryNode{}, false
	}
	return t.nodes[i], true
}

// ByType returns all nodes of a type, tier 1 parents included.
func (t *Taxonomy) ByType(typ model.CategoryType) []model.CategoryNode {
	return t.filter(func(n model.CategoryNode) bool { return n.Type == typ })
}

// Children returns the direct children of parentSlug, or nil for leaves and unknown slugs.
func (t *Taxonomy) Children(parentSlug string) []model.CategoryNode {
	parent, ok := t.BySlug(parentSlug)
	if !ok {
		return nil
	}
	return t.filter(func(n model.CategoryNode) bool {
		return n.ParentID != nil && *n.ParentID == parent.ID
	})
}

// PromptCategories returns the nodes offered to the language model as candidate labels.
func (t *Taxonomy) PromptCategories() []model.CategoryNode {
	return t.filter(func(n model.CategoryNode) bool { return n.IncludeInPrompt })
}

// PromptSlugsByType returns the prompt-eligible slugs of one type.
func (t *Taxonomy) PromptSlugsByType(typ model.CategoryType) []string {
	var slugs []string
	for _, n := range t.ByType(typ) {
		if n.IncludeInPrompt {
			slugs = append(slugs, n.Slug)
		}
	}
	return slugs
}

// CatchAll returns the designated catch-all category.
func (t *Taxonomy) CatchAll() model.CategoryNode {
	n, _ := t.BySlug(t.catchAll)
	return n
}

// SlugToID resolves a slug to its id, falling back to the catch-all id for unknown slugs.
func (t *Taxonomy) SlugToID(slug string) string {
	if n, ok := t.BySlug(slug); ok {
		return n.ID
	}
	return t.CatchAll().ID
}

// Resolve resolves a slug to its node, reporting whether the slug was known.
// Unknown slugs resolve to the catch-all node.
func (t *Taxonomy) Resolve(slug string) (model.CategoryNode, bool) {
	if n, ok := t.BySlug(slug); ok {
		return n, true
	}
	return t.CatchAll(), false
}

// Validate checks the structural invariants of the taxonomy.
func (t *Taxonomy) Validate() error {
	var errs []error

	slugs := make(map[string]bool, len(t.nodes))
	ids := make(map[string]bool, len(t.nodes))
	for _, n := range t.nodes {
		if n.Slug == "" || n.ID == "" {
			errs = append(errs, fmt.Errorf("node %q: slug and id are required", n.Name))
		}
		if slugs[n.Slug] {
			errs = append(errs, fmt.Errorf("duplicate slug %q", n.Slug))
		}
		if ids[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate id %q (slug %q)", n.ID, n.Slug))
		}
		slugs[n.Slug] = true
		ids[n.ID] = true

		if !n.Type.IsValid() {
			errs = append(errs, fmt.Errorf("node %q: unknown type %q", n.Slug, n.Type))
		}
		if n.Type.IsBalanceSheet() && (n.IsPnL || n.IncludeInPrompt) {
			errs = append(errs, fmt.Errorf("node %q: %s categories must not count toward P&L or be offered to the model", n.Slug, n.Type))
		}
	}

	for _, n := range t.nodes {
		if n.ParentID != nil && !ids[*n.ParentID] {
			errs = append(errs, fmt.Errorf("node %q: parent %q does not exist", n.Slug, *n.ParentID))
		}
	}

	if _, ok := t.bySlug[t.catchAll]; !ok {
		errs = append(errs, fmt.Errorf("catch-all category %q does not exist", t.catchAll))
	}

	return errors.Join(errs...)
}

func (t *Taxonomy) filter(keep func(model.CategoryNode) bool) []model.CategoryNode {
	var out []model.CategoryNode
	for _, n := range t.nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
