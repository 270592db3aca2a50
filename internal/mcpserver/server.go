// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes LearnVex course tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/learnvex/internal/apperr"
	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/editor"
	"github.com/starford/learnvex/internal/reorder"
	"github.com/starford/learnvex/internal/storage"
)

const rulesURI = "learnvex://structure-rules"

// Server wraps the MCP server with LearnVex tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *courseservice.Service
	editors *editor.Manager
	objects storage.Provider
}

// New creates a new MCP server with all LearnVex tools registered. objects
// may be nil, in which case request_upload is not offered.
func New(svc *courseservice.Service, editors *editor.Manager, objects storage.Provider) *Server {
	s := &Server{svc: svc, editors: editors, objects: objects}

	s.mcp = server.NewMCPServer(
		"LearnVex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_courses",
		mcp.WithDescription("List courses, newest first."),
	), s.listCourses)

	s.mcp.AddTool(mcp.NewTool("search_courses",
		mcp.WithDescription("Full-text search through course titles and descriptions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCourses)

	s.mcp.AddTool(mcp.NewTool("get_course_structure",
		mcp.WithDescription("Return the ordered chapters and lessons of a course."),
		mcp.WithString("course_id", mcp.Required(), mcp.Description("Course ID")),
	), s.getCourseStructure)

	s.mcp.AddTool(mcp.NewTool("move_item",
		mcp.WithDescription("Drop a chapter or lesson onto another item to reorder it. "+
			"Lessons can only move within their chapter. Read the rules first via "+
			"get_structure_rules or the "+rulesURI+" resource."),
		mcp.WithString("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("ID of the chapter or lesson to move")),
		mcp.WithString("onto_id", mcp.Description("ID of the item it is dropped onto (empty for no target)")),
	), s.moveItem)

	s.mcp.AddTool(mcp.NewTool("toggle_chapter",
		mcp.WithDescription("Expand or collapse a chapter in the current view."),
		mcp.WithString("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("chapter_id", mcp.Required(), mcp.Description("Chapter ID")),
	), s.toggleChapter)

	s.mcp.AddTool(mcp.NewTool("reload_structure",
		mcp.WithDescription("Discard the current view and load the saved structure."),
		mcp.WithString("course_id", mcp.Required(), mcp.Description("Course ID")),
	), s.reloadStructure)

	s.mcp.AddTool(mcp.NewTool("get_structure_rules",
		mcp.WithDescription("Returns the rules for reordering chapters and lessons."),
	), s.getStructureRules)

	if objects != nil {
		s.mcp.AddTool(mcp.NewTool("request_upload",
			mcp.WithDescription("Get a presigned URL to upload a thumbnail or video."),
			mcp.WithString("file_name", mcp.Required(), mcp.Description("File name, without directories")),
			mcp.WithString("content_type", mcp.Required(), mcp.Description("MIME type of the file")),
			mcp.WithNumber("file_size", mcp.Required(), mcp.Description("Size of the file in bytes")),
		), s.requestUpload)
	}

	s.mcp.AddResource(
		mcp.NewResource(rulesURI, "Structure Rules",
			mcp.WithResourceDescription("How chapters and lessons may be reordered."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listCourses(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	courses, _, err := s.svc.ListCourses(ctx, 100, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(courses), nil
}

func (s *Server) searchCourses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) session(ctx context.Context, req mcp.CallToolRequest) (*editor.Session, *mcp.CallToolResult) {
	courseID, err := req.RequireString("course_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	sess, err := s.editors.Session(ctx, courseID)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("open course %s: %v", courseID, err))
	}
	return sess, nil
}

func (s *Server) getCourseStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(sess.Structure()), nil
}

func (s *Server) moveItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ontoID := req.GetString("onto_id", "")

	sess, errRes := s.session(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	res, err := sess.Move(ctx, itemID, ontoID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", res.Status, res.Message)), nil
	}
	if res.Status == reorder.StatusIgnored {
		return mcp.NewToolResultText("nothing to move"), nil
	}
	return jsonResult(res), nil
}

func (s *Server) toggleChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chapterID, err := req.RequireString("chapter_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, errRes := s.session(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	tree, err := sess.Toggle(chapterID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree), nil
}

func (s *Server) reloadStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	tree, err := sess.Reload(ctx)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.editors.Forget(sess.CourseID())
		return mcp.NewToolResultError(fmt.Sprintf("course %s no longer exists", sess.CourseID())), nil
	case reorder.IsKind(err, reorder.KindMalformed):
		return mcp.NewToolResultError("saved structure is inconsistent, keeping the current view: " + err.Error()), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree), nil
}

func (s *Server) requestUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	contentType, err := req.RequireString("content_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	size, err := req.RequireFloat("file_size")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	up := storage.UploadRequest{FileName: name, ContentType: contentType, FileSize: int64(size)}
	if err := up.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	put := up.PutRequest()
	u, err := s.objects.PresignPut(ctx, put)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"presignedUrl": u, "key": put.Key}), nil
}

func (s *Server) getStructureRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(StructureRules), nil
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesURI,
			MIMEType: "text/markdown",
			Text:     StructureRules,
		},
	}, nil
}
