package routing

import (
	"maps"

	"github.com/salesops/workflow/internal/workflow/model"
)

// Draft is the complete state of an approval being prepared for a Technical
// Recommendation. Aggregation and validation are derived from it and never stored.
type Draft struct {
	Products []model.Product
	Routing  map[string]model.Routing // productId -> routing
	NewItems map[string]bool          // productId -> isNewItem
	Mappings map[string]string        // productId -> inventory item id
	Form     model.ApprovalForm
}

// NewDraft seeds a draft from the decisions already recorded on the products.
func NewDraft(products []model.Product) Draft {
	d := Draft{
		Products: append([]model.Product(nil), products...),
		Routing:  make(map[string]model.Routing, len(products)),
		NewItems: make(map[string]bool, len(products)),
		Mappings: make(map[string]string, len(products)),
	}
	for _, p := range products {
		if p.Routing != model.RoutingUnrouted {
			d.Routing[p.ID] = p.Routing
		}
		if p.IsNewItem {
			d.NewItems[p.ID] = true
		}
		if p.InventoryItemID != "" {
			d.Mappings[p.ID] = p.InventoryItemID
		}
	}
	return d
}

// Aggregate evaluates the routing of the draft's own products.
func (d Draft) Aggregate() Aggregate {
	own := make(map[string]model.Routing, len(d.Products))
	for _, p := range d.Products {
		if r := d.Routing[p.ID]; r != model.RoutingUnrouted {
			own[p.ID] = r
		}
	}
	return AggregateRouting(own, len(d.Products))
}

// ProductsWith returns the products routed to r, in recommendation order.
func (d Draft) ProductsWith(r model.Routing) []model.Product {
	var out []model.Product
	for _, p := range d.Products {
		if d.Routing[p.ID] == r {
			out = append(out, p)
		}
	}
	return out
}

// Resolved returns the products with the draft's routing, new-item flag and mapping applied.
func (d Draft) Resolved() []model.Product {
	out := make([]model.Product, len(d.Products))
	for i, p := range d.Products {
		p.Routing = d.Routing[p.ID]
		p.IsNewItem = d.NewItems[p.ID]
		p.InventoryItemID = d.Mappings[p.ID]
		out[i] = p
	}
	return out
}

// Action is one edit applied to a Draft by Reduce.
type Action interface {
	apply(d *Draft)
}

// SetRouting sets or clears (RoutingUnrouted) the routing of one product.
type SetRouting struct {
	ProductID string
	Routing   model.Routing
}

func (a SetRouting) apply(d *Draft) {
	if a.Routing == model.RoutingUnrouted {
		delete(d.Routing, a.ProductID)
		return
	}
	d.Routing[a.ProductID] = a.Routing
}

// SetNewItem flags or unflags a product as a new inventory item.
type SetNewItem struct {
	ProductID string
	IsNew     bool
}

func (a SetNewItem) apply(d *Draft) {
	if a.IsNew {
		d.NewItems[a.ProductID] = true
		return
	}
	delete(d.NewItems, a.ProductID)
}

// MapItem associates a product with an inventory item.
type MapItem struct {
	ProductID       string
	InventoryItemID string
}

func (a MapItem) apply(d *Draft) {
	if a.InventoryItemID == "" {
		delete(d.Mappings, a.ProductID)
		return
	}
	d.Mappings[a.ProductID] = a.InventoryItemID
}

// UnmapItem removes a product's inventory association.
type UnmapItem struct {
	ProductID string
}

func (a UnmapItem) apply(d *Draft) {
	delete(d.Mappings, a.ProductID)
}

// SetForm replaces the assignee form.
type SetForm struct {
	Form model.ApprovalForm
}

func (a SetForm) apply(d *Draft) {
	d.Form = a.Form
}

// Reduce returns a copy of d with action applied. d itself is left untouched.
func Reduce(d Draft, action Action) Draft {
	next := Draft{
		Products: append([]model.Product(nil), d.Products...),
		Routing:  cloneOrEmpty(d.Routing),
		NewItems: cloneOrEmpty(d.NewItems),
		Mappings: cloneOrEmpty(d.Mappings),
		Form:     d.Form,
	}
	if action != nil {
		action.apply(&next)
	}
	return next
}

func cloneOrEmpty[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return make(map[K]V)
	}
	return maps.Clone(m)
}
