package protocol

import (
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SupportedVersions lists the protocol revisions the server speaks, newest first.
var SupportedVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// LatestVersion is the revision offered when the client asks for one we do not know.
var LatestVersion = SupportedVersions[0]

// NegotiateVersion returns requested if supported, otherwise the server's preferred version.
func NegotiateVersion(requested, preferred string) string {
	if slices.Contains(SupportedVersions, requested) {
		return requested
	}
	if slices.Contains(SupportedVersions, preferred) {
		return preferred
	}
	return LatestVersion
}

// InitializeParams is the client's initialize request.
type InitializeParams = mcp.InitializeParams

// InitializeResult is the server's handshake reply.
type InitializeResult = mcp.InitializeResult

// ServerIdentity names this server in the handshake.
type ServerIdentity struct {
	Name         string
	Version      string
	Instructions string
}

// NewInitializeResult builds the handshake reply. Only tool calling is
// declared; listChanged is advertised when the transport will push
// notifications/tools/list_changed.
func NewInitializeResult(id ServerIdentity, version string, listChanged bool) *InitializeResult {
	return &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: listChanged},
		},
		ServerInfo: &mcp.Implementation{
			Name:    id.Name,
			Version: id.Version,
		},
		Instructions: id.Instructions,
	}
}
