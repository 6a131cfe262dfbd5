// ABOUTME: Graph of every discovered introduction path for one user
// ABOUTME: Renders you -> contact -> target edges plus dashed outbound targets as DOT
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

// Source is the read side of the store the graphs draw from.
type Source interface {
	GetCompanies(ctx context.Context, userID uuid.UUID) ([]models.Company, error)
	GetContact(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error)
	GetConnections(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.Connection, error)
	ListOpportunities(ctx context.Context, userID uuid.UUID, filter db.OpportunityFilter) ([]models.Opportunity, error)
}

type GraphGenerator struct {
	src Source
}

func NewGraphGenerator(src Source) *GraphGenerator {
	return &GraphGenerator{src: src}
}

var typeColor = map[models.OpportunityType]string{
	models.TypeDirect:      "darkgreen",
	models.TypeSecondLevel: "orange",
	models.TypeInferred:    "purple",
	models.TypeOutbound:    "gray",
}

// GeneratePathGraph draws the active opportunities of a user, optionally
// narrowed to one target company.
func (g *GraphGenerator) GeneratePathGraph(ctx context.Context, userID uuid.UUID, targetID *uuid.UUID) (string, error) {
	filter := db.OpportunityFilter{ActiveOnly: true}
	if targetID != nil {
		filter.TargetID = *targetID
	}
	opps, err := g.src.ListOpportunities(ctx, userID, filter)
	if err != nil {
		return "", fmt.Errorf("failed to fetch opportunities: %w", err)
	}
	connections, err := g.src.GetConnections(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch connections: %w", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Introduction paths")
	graph.SetRankDir(cgraph.LRRank)

	you, err := graph.CreateNodeByName("you")
	if err != nil {
		return "", fmt.Errorf("failed to create root node: %w", err)
	}
	you.SetLabel("You")
	you.SetShape("doublecircle")

	contactNodes := make(map[uuid.UUID]*cgraph.Node)
	targetNodes := make(map[uuid.UUID]*cgraph.Node)

	for _, opp := range opps {
		target, ok := targetNodes[opp.TargetID]
		if !ok {
			target, err = graph.CreateNodeByName("company_" + opp.TargetID.String()[:8])
			if err != nil {
				return "", fmt.Errorf("failed to create company node: %w", err)
			}
			target.SetLabel(opp.TargetName)
			target.SetShape("box")
			target.SetStyle("filled")
			target.SetFillColor("lightblue")
			targetNodes[opp.TargetID] = target
		}

		color := typeColor[opp.Type]
		if opp.ContactID == nil {
			edge, err := graph.CreateEdgeByName("outbound_"+opp.ID.String()[:8], you, target)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel(fmt.Sprintf("outbound (%d)", opp.Scores.Total))
			edge.SetStyle("dashed")
			edge.SetColor(color)
			continue
		}

		contact, ok := contactNodes[*opp.ContactID]
		if !ok {
			contact, err = graph.CreateNodeByName("contact_" + opp.ContactID.String()[:8])
			if err != nil {
				return "", fmt.Errorf("failed to create contact node: %w", err)
			}
			contact.SetLabel(opp.ContactName)
			contact.SetShape("ellipse")
			contact.SetStyle("filled")
			contact.SetFillColor("lightgreen")
			contactNodes[*opp.ContactID] = contact

			strength := models.DefaultStrength
			if c, ok := connections[*opp.ContactID]; ok {
				strength = c.Strength
			}
			edge, err := graph.CreateEdgeByName("knows_"+opp.ContactID.String()[:8], you, contact)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel(fmt.Sprintf("strength %d", strength))
		}

		edge, err := graph.CreateEdgeByName(string(opp.Type)+"_"+opp.ID.String()[:8], contact, target)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel(fmt.Sprintf("%s (%d)", opp.Type, opp.Scores.Total))
		edge.SetColor(color)
		if opp.Type != models.TypeDirect {
			edge.SetStyle("dotted")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
