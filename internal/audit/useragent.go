package audit

import (
	"fmt"

	"github.com/neiii/stargate-better-auth/internal/buildinfo"
)

// CreateUserAgent builds the descriptive user-agent sent with GitHub API
// requests so star checks are attributable in provider-side logs.
func CreateUserAgent(repository string) string {
	return fmt.Sprintf("Stargate/%s (+https://github.com/neiii/stargate-better-auth; gate=%s)",
		buildinfo.Version, repository)
}
