// ABOUTME: Graph of one contact's employers and the opportunities routed through them
// ABOUTME: Shows current and past companies and which of them are ICP targets
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/models"
)

func (g *GraphGenerator) GenerateContactGraph(ctx context.Context, userID, contactID uuid.UUID) (string, error) {
	contact, err := g.src.GetContact(ctx, userID, contactID)
	if err != nil {
		return "", err
	}
	companies, err := g.src.GetCompanies(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch companies: %w", err)
	}
	opps, err := g.src.ListOpportunities(ctx, userID, db.OpportunityFilter{ActiveOnly: true})
	if err != nil {
		return "", fmt.Errorf("failed to fetch opportunities: %w", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetRankDir(cgraph.LRRank)

	person, err := graph.CreateNodeByName("contact")
	if err != nil {
		return "", fmt.Errorf("failed to create contact node: %w", err)
	}
	label := contact.Name
	if contact.Title != "" {
		label += "\n" + contact.Title
	}
	person.SetLabel(label)
	person.SetStyle("filled")
	person.SetFillColor("lightgreen")

	nodes := make(map[string]*cgraph.Node)
	employer := func(name, domain string) (*cgraph.Node, error) {
		key := "n:" + models.NormalizeCompanyName(name)
		if d := models.NormalizeDomain(domain); d != "" {
			key = "d:" + d
		}
		if n, ok := nodes[key]; ok {
			return n, nil
		}
		n, err := graph.CreateNodeByName(fmt.Sprintf("employer_%d", len(nodes)))
		if err != nil {
			return nil, err
		}
		n.SetLabel(name)
		n.SetShape("box")
		for _, c := range companies {
			if models.SameCompany(name, domain, c) {
				n.SetLabel(fmt.Sprintf("%s\nICP %d", c.Name, c.ICPScore))
				n.SetStyle("filled")
				n.SetFillColor("lightblue")
				break
			}
		}
		nodes[key] = n
		return n, nil
	}

	if contact.CurrentCompany != "" || contact.CurrentCompanyDomain != "" {
		n, err := employer(contact.CurrentCompany, contact.CurrentCompanyDomain)
		if err != nil {
			return "", fmt.Errorf("failed to create company node: %w", err)
		}
		edge, err := graph.CreateEdgeByName("works_at", person, n)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel("works at")
	}
	for i, h := range contact.History {
		n, err := employer(h.Company, h.Domain)
		if err != nil {
			return "", fmt.Errorf("failed to create company node: %w", err)
		}
		edge, err := graph.CreateEdgeByName(fmt.Sprintf("worked_at_%d", i), person, n)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel("worked at" + tenureLabel(h))
		edge.SetStyle("dashed")
	}

	for _, opp := range opps {
		if opp.ContactID == nil || *opp.ContactID != contactID {
			continue
		}
		n, err := graph.CreateNodeByName("opp_" + opp.ID.String()[:8])
		if err != nil {
			return "", fmt.Errorf("failed to create opportunity node: %w", err)
		}
		n.SetLabel(fmt.Sprintf("%s\n%s · %d", opp.TargetName, opp.Status, opp.Scores.Total))
		n.SetShape("diamond")
		n.SetStyle("filled")
		n.SetFillColor("lightyellow")
		edge, err := graph.CreateEdgeByName("intro_"+opp.ID.String()[:8], person, n)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel(string(opp.Type))
		edge.SetColor(typeColor[opp.Type])
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func tenureLabel(h models.Employment) string {
	switch {
	case h.StartYear != nil && h.EndYear != nil:
		return fmt.Sprintf(" %d-%d", *h.StartYear, *h.EndYear)
	case h.EndYear != nil:
		return fmt.Sprintf(" until %d", *h.EndYear)
	}
	return ""
}
