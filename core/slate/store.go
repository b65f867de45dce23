package slate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"research-planner/core/pricing"
	"research-planner/core/types"
	"research-planner/internal/logging"
)

// OtherCategory groups items whose service is not in the catalog
const OtherCategory = "other"

// Store owns a slate and keeps every item priced. It has a single writer
// and is not safe for concurrent use.
type Store struct {
	slate     Slate
	services  pricing.ServiceLookup
	evaluator *pricing.Evaluator

	now   func() time.Time
	newID func() string

	logger *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the generator of item ids
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// NewStore creates a store with an empty draft slate
func NewStore(services pricing.ServiceLookup, opts ...Option) *Store {
	s := &Store{
		slate:     Empty(),
		services:  services,
		evaluator: pricing.NewEvaluator(services),
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logging.Named("slate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// price re-evaluates an item at its current quantity
func (s *Store) price(item *Item) {
	est, _ := s.evaluator.Price(item.Service, item.Quantity, item.Subsidy)
	item.MonthlyEstimate = est.Monthly
	item.AnnualEstimate = est.Annual
	item.Breakdown = est.Breakdown
}

func (s *Store) unitFor(service string) string {
	if svc, ok := s.services.Service(service); ok {
		return svc.UnitLabel()
	}
	return types.DefaultUnitLabel
}

func (s *Store) find(id string) (int, bool) {
	for i := range s.slate.Items {
		if s.slate.Items[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) findService(service string) (int, bool) {
	for i := range s.slate.Items {
		if s.slate.Items[i].Service == service {
			return i, true
		}
	}
	return -1, false
}

// AddItem adds a request. If the service is already on the slate the
// quantities are summed and the item is re-priced at the total; the
// calculator inputs of the request replace the previous ones.
func (s *Store) AddItem(req ItemRequest) Item {
	if i, ok := s.findService(req.Service); ok {
		item := &s.slate.Items[i]
		item.Quantity = item.Quantity.Add(req.Quantity)
		item.CalculatorInputs = req.CalculatorInputs
		if req.Subsidy != "" {
			item.Subsidy = req.Subsidy
		}
		s.price(item)

		s.logger.Debug("item merged",
			zap.String("service", item.Service),
			zap.String("quantity", item.Quantity.String()))
		return *item
	}
	return s.AddItemSeparate(req)
}

// AddItemSeparate always adds a new item, even if the service is already
// on the slate
func (s *Store) AddItemSeparate(req ItemRequest) Item {
	unit := req.Unit
	if unit == "" {
		unit = s.unitFor(req.Service)
	}
	item := Item{
		ID:               s.newID(),
		Service:          req.Service,
		Quantity:         req.Quantity,
		Unit:             unit,
		Subsidy:          req.Subsidy,
		FromCalculator:   req.FromCalculator,
		CalculatorInputs: req.CalculatorInputs,
		Notes:            req.Notes,
		AddedAt:          s.now().UTC(),
	}
	s.price(&item)
	s.slate.Items = append(s.slate.Items, item)

	s.logger.Debug("item added",
		zap.String("id", item.ID),
		zap.String("service", item.Service),
		zap.String("quantity", item.Quantity.String()))
	return item
}

// AddWithArchive adds a request plus an archive allocation of quantity ×
// ratio on the archive service of the requested service. Both are added as
// separate items. A non-positive ratio uses the configured default. It
// reports false, adding only the primary item, when the service has no
// archive option.
func (s *Store) AddWithArchive(req ItemRequest, ratio float64) (Item, Item, bool) {
	primary := s.AddItemSeparate(req)

	svc, ok := s.services.Service(req.Service)
	if !ok || svc.ArchiveOption == nil {
		return primary, Item{}, false
	}
	if ratio <= 0 {
		ratio = svc.ArchiveOption.DefaultRatio
	}

	archive := s.AddItemSeparate(ItemRequest{
		Service:        svc.ArchiveOption.ServiceSlug,
		Quantity:       req.Quantity.Mul(decimal.NewFromFloat(ratio)),
		FromCalculator: req.FromCalculator,
		Notes:          "Archive copy of " + req.Service,
	})
	return primary, archive, true
}

// RemoveItem deletes an item by id
func (s *Store) RemoveItem(id string) bool {
	i, ok := s.find(id)
	if !ok {
		return false
	}
	s.slate.Items = append(s.slate.Items[:i], s.slate.Items[i+1:]...)
	s.logger.Debug("item removed", zap.String("id", id))
	return true
}

// UpdateQuantity replaces the quantity of an item and re-prices it
func (s *Store) UpdateQuantity(id string, quantity decimal.Decimal) (Item, bool) {
	i, ok := s.find(id)
	if !ok {
		return Item{}, false
	}
	item := &s.slate.Items[i]
	item.Quantity = quantity
	s.price(item)
	return *item, true
}

// UpdateItemNotes replaces the notes of an item
func (s *Store) UpdateItemNotes(id, notes string) bool {
	i, ok := s.find(id)
	if !ok {
		return false
	}
	s.slate.Items[i].Notes = notes
	return true
}

// Item returns an item by id
func (s *Store) Item(id string) (Item, bool) {
	i, ok := s.find(id)
	if !ok {
		return Item{}, false
	}
	return s.slate.Items[i], true
}

// AddSoftware adds a software selection once per id
func (s *Store) AddSoftware(sw Software) bool {
	for _, existing := range s.slate.Software {
		if existing.ID == sw.ID {
			return false
		}
	}
	if sw.LicenseModel == "" {
		sw.LicenseModel = DefaultLicenseModel
	}
	s.slate.Software = append(s.slate.Software, sw)
	return true
}

// RemoveSoftware removes a software selection by id
func (s *Store) RemoveSoftware(id string) bool {
	for i, sw := range s.slate.Software {
		if sw.ID == id {
			s.slate.Software = append(s.slate.Software[:i], s.slate.Software[i+1:]...)
			return true
		}
	}
	return false
}

// Wipe replaces the slate with an empty draft
func (s *Store) Wipe() {
	s.slate = Empty()
	s.logger.Debug("slate wiped")
}

// SetProjectName sets the project name used in exports
func (s *Store) SetProjectName(name string) {
	s.slate.ProjectName = name
}

// SetFinalNotes sets the closing notes used in exports
func (s *Store) SetFinalNotes(notes string) {
	s.slate.FinalNotes = notes
}

// SetSubmissionDetails records funding, contact and timeline
func (s *Store) SetSubmissionDetails(d SubmissionDetails) {
	s.slate.FundingSource = d.FundingSource
	s.slate.Contact = d.Contact
	s.slate.Timeline = d.Timeline
}

// MarkSubmitted moves the slate to submitted. Items are not frozen; callers
// decide whether a submitted slate may still change.
func (s *Store) MarkSubmitted(requestID string) {
	now := s.now().UTC()
	s.slate.Status = StatusSubmitted
	s.slate.SubmittedAt = &now
	s.slate.RequestID = requestID
	s.logger.Debug("slate submitted", zap.String("request_id", requestID))
}

// ResetToDraft moves the slate back to draft for editing, keeping items
func (s *Store) ResetToDraft() {
	s.slate.Status = StatusDraft
	s.slate.SubmittedAt = nil
	s.slate.RequestID = ""
}

// TotalMonthlyCost sums the monthly estimates of all items
func (s *Store) TotalMonthlyCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.slate.Items {
		total = total.Add(item.MonthlyEstimate)
	}
	return total
}

// TotalAnnualCost sums the annual estimates of all items
func (s *Store) TotalAnnualCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.slate.Items {
		total = total.Add(item.AnnualEstimate)
	}
	return total
}

// ItemCount returns the number of items
func (s *Store) ItemCount() int {
	return len(s.slate.Items)
}

// SoftwareCount returns the number of software selections
func (s *Store) SoftwareCount() int {
	return len(s.slate.Software)
}

// IsEmpty reports whether the slate has neither items nor software
func (s *Store) IsEmpty() bool {
	return len(s.slate.Items) == 0 && len(s.slate.Software) == 0
}

// IsSubmitted reports whether the slate has been submitted
func (s *Store) IsSubmitted() bool {
	return s.slate.Status == StatusSubmitted
}

// ServiceSlugs returns the distinct services on the slate in order of
// first appearance
func (s *Store) ServiceSlugs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range s.slate.Items {
		if !seen[item.Service] {
			seen[item.Service] = true
			out = append(out, item.Service)
		}
	}
	return out
}

// ItemsByCategory groups items by the category of their service
func (s *Store) ItemsByCategory() map[string][]Item {
	out := make(map[string][]Item)
	for _, item := range s.slate.Items {
		category := OtherCategory
		if svc, ok := s.services.Service(item.Service); ok && svc.Category != "" {
			category = svc.Category
		}
		out[category] = append(out[category], item)
	}
	return out
}

// Snapshot returns a copy of the slate
func (s *Store) Snapshot() Slate {
	return s.slate.Clone()
}

// Restore replaces the slate with a previously saved one. Stored estimates
// are kept as they were saved.
func (s *Store) Restore(saved Slate) {
	restored := saved.Clone()
	if restored.Status == "" {
		restored.Status = StatusDraft
	}
	s.slate = restored
}

// Reprice re-evaluates every item against the current catalog
func (s *Store) Reprice() {
	for i := range s.slate.Items {
		s.price(&s.slate.Items[i])
	}
}
