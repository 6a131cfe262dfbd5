// ABOUTME: MCP server subcommand
// ABOUTME: Registers the prospecting tools, resources and prompts and serves them on stdio
package cli

import (
	"context"
	"log"

	"github.com/harperreed/introengine/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverVersion = "0.2.0"

// NewMCPServer builds the server with every tool, resource and prompt registered.
func NewMCPServer(app *App) *mcp.Server {
	companyHandlers := handlers.NewCompanyHandlers(app.Store, app.UserID)
	contactHandlers := handlers.NewContactHandlers(app.Store, app.UserID)
	opportunityHandlers := handlers.NewOpportunityHandlers(app.Store, app.Advisor, app.UserID)
	pipelineHandlers := handlers.NewPipelineHandlers(app.Runner, app.UserID)
	vizHandlers := handlers.NewVizHandlers(app.Store, app.UserID)
	resourceHandlers := handlers.NewResourceHandlers(app.Store, app.UserID)
	promptHandlers := handlers.NewPromptHandlers(app.Store, app.UserID)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "introengine",
		Version: serverVersion,
	}, nil)

	// Profile and network
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_icp",
		Description: "Set the ideal customer profile used to score target companies",
	}, companyHandlers.SetICP)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_icp",
		Description: "Show the current ideal customer profile",
	}, companyHandlers.GetICP)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_company",
		Description: "Add a target company or update the one with the same name or domain",
	}, companyHandlers.AddCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a contact with their current employer and work history",
	}, contactHandlers.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_interaction",
		Description: "Log a meeting, call, email, message or event with a contact and strengthen the connection",
	}, contactHandlers.RecordInteraction)

	// Pipeline
	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_pipeline",
		Description: "Recalculate opportunities: inference, outbound, scoring, followup or full",
	}, pipelineHandlers.RunPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_opportunities",
		Description: "List opportunities best score first, optionally filtered by status or type",
	}, opportunityHandlers.ListOpportunities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_opportunity_status",
		Description: "Move an opportunity forward through its lifecycle",
	}, opportunityHandlers.UpdateOpportunityStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "request_intro",
		Description: "Mark that an introduction has been requested from the contact",
	}, opportunityHandlers.RequestIntro)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "draft_follow_up",
		Description: "Draft a follow-up message for an opportunity that has gone quiet",
	}, opportunityHandlers.DraftFollowUp)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render intro paths or one contact's employers as GraphViz DOT",
	}, vizHandlers.GenerateGraph)

	for _, r := range handlers.Resources() {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, t := range handlers.ResourceTemplates() {
		server.AddResourceTemplate(t, resourceHandlers.ReadResource)
	}
	for _, p := range handlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, app *App) error {
	log.Println("Starting IntroEngine MCP Server...")
	log.Printf("Acting for account %s", app.UserID)

	return NewMCPServer(app).Run(ctx, &mcp.StdioTransport{})
}
