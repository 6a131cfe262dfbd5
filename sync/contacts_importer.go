// ABOUTME: Google Contacts importer
// ABOUTME: Maps People API organizations to current employer and work history, with deduplication
package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
	"google.golang.org/api/people/v1"
)

// ContactsService is the sync_state / sync_log service name.
const ContactsService = "google_contacts"

// ImportStore is the part of the store the importer writes through.
type ImportStore interface {
	GetContacts(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	UpsertContact(ctx context.Context, contact *models.Contact) (bool, error)
	SyncedContact(ctx context.Context, userID uuid.UUID, sourceService, sourceID string) (uuid.UUID, bool, error)
	RecordSync(ctx context.Context, userID uuid.UUID, sourceService, sourceID string, contactID uuid.UUID) error
	UpdateSyncStatus(ctx context.Context, userID uuid.UUID, service, status string, errorMsg *string) error
}

type GoogleContact struct {
	ResourceName  string
	Name          string
	Email         string
	LinkedIn      string
	Company       string
	CompanyDomain string
	JobTitle      string
	History       []models.Employment
}

type ContactsImporter struct {
	store   ImportStore
	matcher *ContactMatcher
	log     *logger.Logger
}

func NewContactsImporter(store ImportStore, log *logger.Logger) *ContactsImporter {
	if log == nil {
		log = logger.NewNop()
	}
	return &ContactsImporter{store: store, log: log}
}

// ImportResult counts what one import did.
type ImportResult struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("fetched=%d created=%d updated=%d skipped=%d failed=%d",
		r.Fetched, r.Created, r.Updated, r.Skipped, r.Failed)
}

// ImportContact imports a single contact. Records imported before update the
// same contact, so job changes flow into path discovery on the next run.
func (ci *ContactsImporter) ImportContact(ctx context.Context, userID uuid.UUID, gc *GoogleContact) (bool, error) {
	contact := &models.Contact{
		UserID:               userID,
		Name:                 gc.Name,
		Email:                gc.Email,
		LinkedIn:             gc.LinkedIn,
		CurrentCompany:       gc.Company,
		CurrentCompanyDomain: gc.CompanyDomain,
		Title:                gc.JobTitle,
		History:              gc.History,
	}

	syncedID, synced, err := ci.store.SyncedContact(ctx, userID, ContactsService, gc.ResourceName)
	if err != nil {
		return false, err
	}
	switch {
	case synced:
		contact.ID = syncedID
	default:
		if existing, found := ci.matcher.FindMatch(gc.Email, gc.Name, gc.Company); found {
			contact.ID = existing.ID
		}
	}

	created, err := ci.store.UpsertContact(ctx, contact)
	if err != nil {
		return false, fmt.Errorf("failed to save contact: %w", err)
	}
	if err := ci.store.RecordSync(ctx, userID, ContactsService, gc.ResourceName, contact.ID); err != nil {
		return false, fmt.Errorf("failed to log sync: %w", err)
	}

	ci.matcher.AddContact(contact)
	return created, nil
}

// ImportContacts pages through the source and imports every named contact.
// Per-contact failures are logged and counted; source failures abort and
// leave the sync state in error.
func (ci *ContactsImporter) ImportContacts(ctx context.Context, userID uuid.UUID, src PeopleSource) (ImportResult, error) {
	var result ImportResult
	log := ci.log.With("user_id", userID.String(), "service", ContactsService)

	fail := func(err error) (ImportResult, error) {
		msg := err.Error()
		if serr := ci.store.UpdateSyncStatus(ctx, userID, ContactsService, db.SyncError, &msg); serr != nil {
			log.Warn("failed to record sync error", "error", serr)
		}
		return result, err
	}

	if err := ci.store.UpdateSyncStatus(ctx, userID, ContactsService, db.SyncSyncing, nil); err != nil {
		return result, fmt.Errorf("failed to update sync status: %w", err)
	}

	existing, err := ci.store.GetContacts(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("failed to load existing contacts: %w", err))
	}
	ci.matcher = NewContactMatcher(existing)

	pageToken := ""
	for {
		response, err := src.ListConnections(ctx, pageToken)
		if err != nil {
			return fail(fmt.Errorf("failed to fetch contacts: %w", err))
		}
		if response == nil {
			break
		}

		result.Fetched += len(response.Connections)
		for _, person := range response.Connections {
			gc := convertPerson(person)
			if gc.Name == "" {
				result.Skipped++
				continue
			}
			created, err := ci.ImportContact(ctx, userID, gc)
			if err != nil {
				log.Warn("failed to import contact", "resource", gc.ResourceName, "error", err)
				result.Failed++
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
		log.Debug("import page done", "so_far", result.Fetched)
	}

	if err := ci.store.UpdateSyncStatus(ctx, userID, ContactsService, db.SyncIdle, nil); err != nil {
		return result, fmt.Errorf("failed to update sync status: %w", err)
	}
	log.Info("google contacts imported", "result", result.String())
	return result, nil
}

// freemail domains never identify an employer.
var freemail = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "live.com": true, "icloud.com": true, "me.com": true,
	"aol.com": true, "proton.me": true, "protonmail.com": true, "fastmail.com": true,
}

// convertPerson converts a People API Person to GoogleContact. The current
// organization (or the first open-ended one when none is flagged) becomes the
// employer; the rest become history, most recent first.
func convertPerson(person *people.Person) *GoogleContact {
	gc := &GoogleContact{ResourceName: person.ResourceName}

	if len(person.Names) > 0 {
		gc.Name = strings.TrimSpace(person.Names[0].DisplayName)
	}

	for _, email := range person.EmailAddresses {
		if email.Value == "" {
			continue
		}
		if gc.Email == "" {
			gc.Email = email.Value
		}
		if email.Metadata != nil && email.Metadata.Primary {
			gc.Email = email.Value
			break
		}
	}

	for _, u := range person.Urls {
		if strings.Contains(strings.ToLower(u.Value), "linkedin.com/") {
			gc.LinkedIn = u.Value
			break
		}
	}

	current := -1
	for i, org := range person.Organizations {
		if org.Current && org.Name != "" {
			current = i
			break
		}
	}
	if current < 0 {
		for i, org := range person.Organizations {
			if org.Name != "" && org.EndDate == nil {
				current = i
				break
			}
		}
	}

	for i, org := range person.Organizations {
		if org.Name == "" {
			continue
		}
		if i == current {
			gc.Company = org.Name
			gc.CompanyDomain = org.Domain
			gc.JobTitle = org.Title
			continue
		}
		gc.History = append(gc.History, models.Employment{
			Company:   org.Name,
			Domain:    org.Domain,
			Title:     org.Title,
			StartYear: year(org.StartDate),
			EndYear:   year(org.EndDate),
		})
	}
	sort.SliceStable(gc.History, func(i, j int) bool {
		return yearOrZero(gc.History[i].EndYear) > yearOrZero(gc.History[j].EndYear)
	})

	if gc.Company != "" && gc.CompanyDomain == "" {
		gc.CompanyDomain = employerDomain(gc.Email, gc.Company)
	}
	return gc
}

// employerDomain returns the email's domain when it plausibly belongs to the
// employer: not a freemail host, and its first label spells the company name.
func employerDomain(email, company string) string {
	d := extractDomain(email)
	if d == "" || freemail[d] {
		return ""
	}
	label, _, _ := strings.Cut(d, ".")
	if label != strings.ReplaceAll(models.NormalizeCompanyName(company), " ", "") {
		return ""
	}
	return d
}

func year(d *people.Date) *int {
	if d == nil || d.Year == 0 {
		return nil
	}
	y := int(d.Year)
	return &y
}

func yearOrZero(y *int) int {
	if y == nil {
		return 0
	}
	return *y
}
