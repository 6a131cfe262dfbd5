// ABOUTME: Introduction path discovery through the user's contacts
// ABOUTME: Finds the strongest direct, second-level or inferred path to a target company
package paths

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/models"
)

// InferredMinStrength is the lowest connection strength that can carry an
// inferred introduction.
const InferredMinStrength = 50

type Options struct {
	AllowInferred bool
}

// PathResult is the single best path to a target. Type is empty when no
// path exists.
type PathResult struct {
	Type      models.OpportunityType `json:"type,omitempty"`
	Contact   *models.Contact        `json:"contact,omitempty"`
	Strength  int                    `json:"strength"`
	Via       string                 `json:"via,omitempty"` // company the contact is or was at
	Rationale string                 `json:"rationale,omitempty"`
}

// Found reports whether a path exists.
func (r PathResult) Found() bool {
	return r.Type != ""
}

// Network is an immutable index over one user's contacts, connection
// strengths and known companies. Safe for concurrent reads.
type Network struct {
	contacts    []models.Contact
	connections map[uuid.UUID]models.Connection
	companies   []models.Company

	byCurrent map[string][]int
	byPast    map[string][]int
	companyBy map[string][]int
}

// NewNetwork indexes live contacts by their current and past employers.
func NewNetwork(contacts []models.Contact, connections map[uuid.UUID]models.Connection, companies []models.Company) *Network {
	n := &Network{
		connections: connections,
		companies:   companies,
		byCurrent:   make(map[string][]int),
		byPast:      make(map[string][]int),
		companyBy:   make(map[string][]int),
	}
	if n.connections == nil {
		n.connections = map[uuid.UUID]models.Connection{}
	}

	for _, c := range contacts {
		if c.DeletedAt != nil {
			continue
		}
		n.contacts = append(n.contacts, c)
	}
	for i, c := range n.contacts {
		for _, k := range keys(c.CurrentCompany, c.CurrentCompanyDomain) {
			n.byCurrent[k] = append(n.byCurrent[k], i)
		}
		for _, h := range c.History {
			for _, k := range keys(h.Company, h.Domain) {
				n.byPast[k] = appendOnce(n.byPast[k], i)
			}
		}
	}
	for i, co := range companies {
		for _, k := range keys(co.Name, co.Domain) {
			n.companyBy[k] = append(n.companyBy[k], i)
		}
	}
	return n
}

func keys(name, domain string) []string {
	var out []string
	if d := models.NormalizeDomain(domain); d != "" {
		out = append(out, "d:"+d)
	}
	if nm := models.NormalizeCompanyName(name); nm != "" {
		out = append(out, "n:"+nm)
	}
	return out
}

func appendOnce(idx []int, i int) []int {
	if len(idx) > 0 && idx[len(idx)-1] == i {
		return idx
	}
	return append(idx, i)
}

// Contacts returns the live contacts the network was built from.
func (n *Network) Contacts() []models.Contact {
	return n.contacts
}

// Strength is the contact's connection strength, or the default when the
// user has no connection row for them.
func (n *Network) Strength(contactID uuid.UUID) int {
	if c, ok := n.connections[contactID]; ok {
		return c.Strength
	}
	return models.DefaultStrength
}

func (n *Network) candidates(index map[string][]int, target models.Company) []int {
	seen := make(map[int]bool)
	var out []int
	for _, k := range keys(target.Name, target.Domain) {
		for _, i := range index[k] {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	return out
}

// FindPath is the package-level form of Network.FindPath.
func FindPath(n *Network, target models.Company, opts Options) PathResult {
	return n.FindPath(target, opts)
}

// FindPath returns the strongest path to target. Tiers are tried in order
// direct, second level, inferred; the first tier with a qualifying contact
// wins. Identical inputs always give the identical result.
func (n *Network) FindPath(target models.Company, opts Options) PathResult {
	var direct []int
	for _, i := range n.candidates(n.byCurrent, target) {
		c := n.contacts[i]
		if models.SameCompany(c.CurrentCompany, c.CurrentCompanyDomain, target) {
			direct = append(direct, i)
		}
	}
	if best, ok := n.best(direct); ok {
		c := n.contacts[best]
		return n.result(models.TypeDirect, best, target.Name,
			fmt.Sprintf("%s works at %s", c.Name, target.Name))
	}

	var past []int
	for _, i := range n.candidates(n.byPast, target) {
		if _, ok := workedAt(n.contacts[i], target); ok {
			past = append(past, i)
		}
	}
	if best, ok := n.best(past); ok {
		c := n.contacts[best]
		h, _ := workedAt(c, target)
		return n.result(models.TypeSecondLevel, best, target.Name,
			fmt.Sprintf("%s previously worked at %s%s", c.Name, target.Name, tenure(h)))
	}

	if opts.AllowInferred {
		if r, ok := n.inferred(target); ok {
			return r
		}
	}
	return PathResult{}
}

// PathVia returns the strongest path to target that runs through one given
// contact, using the same tiers as FindPath. It is empty when that contact
// no longer connects the user to target.
func (n *Network) PathVia(contactID uuid.UUID, target models.Company, opts Options) PathResult {
	i, ok := n.indexOf(contactID)
	if !ok {
		return PathResult{}
	}
	c := n.contacts[i]
	if models.SameCompany(c.CurrentCompany, c.CurrentCompanyDomain, target) {
		return n.result(models.TypeDirect, i, target.Name,
			fmt.Sprintf("%s works at %s", c.Name, target.Name))
	}
	if h, ok := workedAt(c, target); ok {
		return n.result(models.TypeSecondLevel, i, target.Name,
			fmt.Sprintf("%s previously worked at %s%s", c.Name, target.Name, tenure(h)))
	}
	if opts.AllowInferred && strings.TrimSpace(target.Industry) != "" && n.Strength(c.ID) >= InferredMinStrength {
		peer, ok := n.currentCompany(c)
		if ok && peer.ID != target.ID && !models.SameCompany(peer.Name, peer.Domain, target) && similar(peer, target) {
			return n.result(models.TypeInferred, i, peer.Name,
				fmt.Sprintf("%s works at %s, a %s peer of %s", c.Name, peer.Name, peer.Industry, target.Name))
		}
	}
	return PathResult{}
}

func (n *Network) indexOf(contactID uuid.UUID) (int, bool) {
	for i, c := range n.contacts {
		if c.ID == contactID {
			return i, true
		}
	}
	return 0, false
}

func (n *Network) inferred(target models.Company) (PathResult, bool) {
	if strings.TrimSpace(target.Industry) == "" {
		return PathResult{}, false
	}

	var qualifying []int
	peerOf := make(map[int]models.Company)
	for i, c := range n.contacts {
		if n.Strength(c.ID) < InferredMinStrength {
			continue
		}
		peer, ok := n.currentCompany(c)
		if !ok || peer.ID == target.ID || models.SameCompany(peer.Name, peer.Domain, target) {
			continue
		}
		if !similar(peer, target) {
			continue
		}
		qualifying = append(qualifying, i)
		peerOf[i] = peer
	}

	best, ok := n.best(qualifying)
	if !ok {
		return PathResult{}, false
	}
	c := n.contacts[best]
	peer := peerOf[best]
	return n.result(models.TypeInferred, best, peer.Name,
		fmt.Sprintf("%s works at %s, a %s peer of %s", c.Name, peer.Name, peer.Industry, target.Name)), true
}

// currentCompany resolves a contact's employer to a known company.
func (n *Network) currentCompany(c models.Contact) (models.Company, bool) {
	for _, k := range keys(c.CurrentCompany, c.CurrentCompanyDomain) {
		for _, i := range n.companyBy[k] {
			co := n.companies[i]
			if models.SameCompany(c.CurrentCompany, c.CurrentCompanyDomain, co) {
				return co, true
			}
		}
	}
	return models.Company{}, false
}

// similar requires the same industry plus a shared technology or location.
func similar(a, b models.Company) bool {
	if !strings.EqualFold(strings.TrimSpace(a.Industry), strings.TrimSpace(b.Industry)) {
		return false
	}
	bt := models.FoldSet(b.Technologies)
	for t := range models.FoldSet(a.Technologies) {
		if bt[t] {
			return true
		}
	}
	al := strings.ToLower(strings.TrimSpace(a.Location))
	return al != "" && al == strings.ToLower(strings.TrimSpace(b.Location))
}

func workedAt(c models.Contact, target models.Company) (models.Employment, bool) {
	for _, h := range c.History {
		if models.SameCompany(h.Company, h.Domain, target) {
			return h, true
		}
	}
	return models.Employment{}, false
}

func tenure(h models.Employment) string {
	switch {
	case h.StartYear != nil && h.EndYear != nil:
		return fmt.Sprintf(" (%d-%d)", *h.StartYear, *h.EndYear)
	case h.EndYear != nil:
		return fmt.Sprintf(" (until %d)", *h.EndYear)
	case h.StartYear != nil:
		return fmt.Sprintf(" (from %d)", *h.StartYear)
	}
	return ""
}

// best picks the winner inside one tier: strongest connection, then most
// recent interaction, then earliest created contact, then lowest id.
func (n *Network) best(idx []int) (int, bool) {
	if len(idx) == 0 {
		return 0, false
	}
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(a, b int) bool {
		ca, cb := n.contacts[sorted[a]], n.contacts[sorted[b]]
		sa, sb := n.Strength(ca.ID), n.Strength(cb.ID)
		if sa != sb {
			return sa > sb
		}
		ra, rb := n.connections[ca.ID].LastInteractionAt, n.connections[cb.ID].LastInteractionAt
		switch {
		case ra != nil && rb == nil:
			return true
		case ra == nil && rb != nil:
			return false
		case ra != nil && rb != nil && !ra.Equal(*rb):
			return ra.After(*rb)
		}
		if !ca.CreatedAt.Equal(cb.CreatedAt) {
			return ca.CreatedAt.Before(cb.CreatedAt)
		}
		return ca.ID.String() < cb.ID.String()
	})
	return sorted[0], true
}

func (n *Network) result(typ models.OpportunityType, i int, via, rationale string) PathResult {
	c := n.contacts[i]
	return PathResult{
		Type:      typ,
		Contact:   &c,
		Strength:  n.Strength(c.ID),
		Via:       via,
		Rationale: rationale,
	}
}
