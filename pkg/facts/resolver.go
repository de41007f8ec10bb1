package facts

import (
	"context"
	"log/slog"

	"github.com/deskflow/deskflow/pkg/models"
)

// Resolver gathers typed field values for grouped entity references into one
// flat namespace.
type Resolver struct {
	store  EntityStore
	logger *slog.Logger
}

// NewResolver creates a fact resolver backed by the given entity store.
func NewResolver(store EntityStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With("module", "fact_resolver"),
	}
}

// Resolve produces the fact namespace for the given references, starting from
// the supplied root identifiers. Stages run in order: ticket, contact (via
// the ticket's contact reference when no contact ID is supplied), company
// (via the contact's company reference), custom fields, custom object fields.
// A stage whose root identifier cannot be determined sets its facts to nil.
// Any lookup failure aborts with a ResolutionError carrying the failing
// reference.
func (r *Resolver) Resolve(ctx context.Context, refs []models.EntityReference, roots RootIDs) (Facts, error) {
	grouped := groupByKind(refs)
	out := make(Facts, len(refs))

	ticket, err := r.resolveTicket(ctx, grouped, roots, out)
	if err != nil {
		return nil, err
	}

	contactID := roots.ContactID
	if contactID == "" && ticket != nil {
		contactID = ticket.ContactID
	}

	contact, err := r.resolveContact(ctx, grouped, roots, contactID, out)
	if err != nil {
		return nil, err
	}

	companyID := roots.CompanyID
	if companyID == "" && contact != nil {
		companyID = contact.CompanyID
	}

	if err := r.resolveCompany(ctx, grouped, companyID, out); err != nil {
		return nil, err
	}

	if err := r.resolveCustomFields(ctx, grouped, roots.TicketID, out); err != nil {
		return nil, err
	}

	if err := r.resolveCustomObjectFields(ctx, grouped, roots.TicketID, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Resolver) resolveTicket(
	ctx context.Context,
	grouped map[models.EntityKind][]models.EntityReference,
	roots RootIDs,
	out Facts,
) (*models.Ticket, error) {
	ticketRefs := grouped[models.EntityKindTicket]

	// The ticket row is also needed to derive the contact root.
	contactDerivationNeeded := roots.ContactID == "" &&
		(len(grouped[models.EntityKindContact]) > 0 || len(grouped[models.EntityKindCompany]) > 0)

	if roots.TicketID == "" {
		nullOut(ticketRefs, out)

		return nil, nil
	}

	if len(ticketRefs) == 0 && !contactDerivationNeeded {
		return nil, nil
	}

	ticket, err := r.store.TicketByID(ctx, roots.TicketID)
	if err != nil {
		return nil, newResolutionError(ticketRef(ticketRefs), err)
	}

	for _, ref := range ticketRefs {
		out[ref.FactKey()] = ticket.FieldValue(ref.FieldKey)
	}

	return ticket, nil
}

func (r *Resolver) resolveContact(
	ctx context.Context,
	grouped map[models.EntityKind][]models.EntityReference,
	roots RootIDs,
	contactID string,
	out Facts,
) (*models.Contact, error) {
	contactRefs := grouped[models.EntityKindContact]

	companyDerivationNeeded := roots.CompanyID == "" && len(grouped[models.EntityKindCompany]) > 0

	if contactID == "" {
		nullOut(contactRefs, out)

		return nil, nil
	}

	if len(contactRefs) == 0 && !companyDerivationNeeded {
		return nil, nil
	}

	contact, err := r.store.ContactByID(ctx, contactID)
	if err != nil {
		ref := models.EntityReference{Kind: models.EntityKindContact, FieldKey: "id"}
		if len(contactRefs) > 0 {
			ref = contactRefs[0]
		}

		return nil, newResolutionError(ref, err)
	}

	for _, ref := range contactRefs {
		out[ref.FactKey()] = contact.FieldValue(ref.FieldKey)
	}

	return contact, nil
}

func (r *Resolver) resolveCompany(
	ctx context.Context,
	grouped map[models.EntityKind][]models.EntityReference,
	companyID string,
	out Facts,
) error {
	companyRefs := grouped[models.EntityKindCompany]
	if len(companyRefs) == 0 {
		return nil
	}

	if companyID == "" {
		nullOut(companyRefs, out)

		return nil
	}

	company, err := r.store.CompanyByID(ctx, companyID)
	if err != nil {
		return newResolutionError(companyRefs[0], err)
	}

	for _, ref := range companyRefs {
		out[ref.FactKey()] = company.FieldValue(ref.FieldKey)
	}

	return nil
}

func (r *Resolver) resolveCustomFields(
	ctx context.Context,
	grouped map[models.EntityKind][]models.EntityReference,
	ticketID string,
	out Facts,
) error {
	refs := grouped[models.EntityKindCustomField]
	if len(refs) == 0 {
		return nil
	}

	if ticketID == "" {
		nullOut(refs, out)

		return nil
	}

	fieldIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		fieldIDs = append(fieldIDs, ref.CustomFieldID)
	}

	values, err := r.store.CustomFieldValues(ctx, ticketID, fieldIDs)
	if err != nil {
		return newResolutionError(refs[0], err)
	}

	for _, ref := range refs {
		out[ref.FactKey()] = values[ref.CustomFieldID]
	}

	return nil
}

func (r *Resolver) resolveCustomObjectFields(
	ctx context.Context,
	grouped map[models.EntityKind][]models.EntityReference,
	ticketID string,
	out Facts,
) error {
	refs := grouped[models.EntityKindCustomObjectField]
	if len(refs) == 0 {
		return nil
	}

	if ticketID == "" {
		nullOut(refs, out)

		return nil
	}

	// Group by owning custom object to avoid one round trip per field.
	byObject := make(map[string][]models.EntityReference)
	for _, ref := range refs {
		byObject[ref.CustomObjectID] = append(byObject[ref.CustomObjectID], ref)
	}

	for objectID, objectRefs := range byObject {
		fieldIDs := make([]string, 0, len(objectRefs))
		for _, ref := range objectRefs {
			fieldIDs = append(fieldIDs, ref.CustomObjectFieldID)
		}

		values, err := r.store.CustomObjectFieldValues(ctx, ticketID, objectID, fieldIDs)
		if err != nil {
			return newResolutionError(objectRefs[0], err)
		}

		for _, ref := range objectRefs {
			out[ref.FactKey()] = values[ref.CustomObjectFieldID]
		}
	}

	return nil
}

func groupByKind(refs []models.EntityReference) map[models.EntityKind][]models.EntityReference {
	grouped := make(map[models.EntityKind][]models.EntityReference)
	for _, ref := range refs {
		grouped[ref.Kind] = append(grouped[ref.Kind], ref)
	}

	return grouped
}

func nullOut(refs []models.EntityReference, out Facts) {
	for _, ref := range refs {
		out[ref.FactKey()] = nil
	}
}

func ticketRef(refs []models.EntityReference) models.EntityReference {
	if len(refs) > 0 {
		return refs[0]
	}

	return models.EntityReference{Kind: models.EntityKindTicket, FieldKey: "id"}
}
