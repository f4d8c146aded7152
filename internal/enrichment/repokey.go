package enrichment

import (
	"fmt"
	"strings"

	"wren/pkg/models"
)

// ExtractRepoCoordinate pulls the repository URL out of a delivery, exactly
// as the payload carries it. Gerrit payloads name a bare project, so the
// provider's configured base URL roots the coordinate.
func ExtractRepoCoordinate(event *models.WebhookEvent, baseURL string) (string, error) {
	var coordinate string

	switch event.Provider {
	case models.ProviderGitHub:
		coordinate = event.StringField("repository.clone_url")
	case models.ProviderGitLab:
		coordinate = event.StringField("project.git_http_url")
	case models.ProviderBitbucket:
		coordinate = bitbucketCloneURL(event)
	case models.ProviderGerrit:
		coordinate = gerritCoordinate(event, baseURL)
	}

	if coordinate == "" {
		return "", fmt.Errorf("payload carries no repository coordinate for provider %s", event.Provider)
	}

	return coordinate, nil
}

// bitbucketCloneURL walks the clone-link list and picks the http entry.
// Repository placement differs by event family: push payloads carry a
// top-level repository, pull-request payloads nest it under toRef.
func bitbucketCloneURL(event *models.WebhookEvent) string {
	paths := []string{
		"repository.links.clone",
		"pullRequest.toRef.repository.links.clone",
	}

	for _, path := range paths {
		links, ok := event.Field(path)
		if !ok {
			continue
		}
		if url := pickHTTPCloneLink(links); url != "" {
			return url
		}
	}

	return ""
}

func pickHTTPCloneLink(links interface{}) string {
	list, ok := links.([]interface{})
	if !ok {
		return ""
	}

	for _, item := range list {
		link, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _ := link["name"].(string); name != "http" {
			continue
		}
		if href, _ := link["href"].(string); href != "" {
			return href
		}
	}

	return ""
}

// gerritCoordinate joins the configured base URL with the project name.
// Stream events carry the project as a bare string, REST-style payloads as
// an object with a name field.
func gerritCoordinate(event *models.WebhookEvent, baseURL string) string {
	if baseURL == "" {
		return ""
	}

	project, ok := event.Field("project")
	if !ok {
		return ""
	}

	var name string
	switch p := project.(type) {
	case string:
		name = p
	case map[string]interface{}:
		name, _ = p["name"].(string)
	}

	if name == "" {
		return ""
	}

	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(name, "/")
}

// NormalizeRepoKey turns a repository coordinate into the registry's lookup
// key: lowercase, scheme and credentials stripped, trailing slash and .git
// suffix removed. Distinct URL spellings of one repository converge on one
// key.
func NormalizeRepoKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))

	if idx := strings.Index(key, "://"); idx >= 0 {
		key = key[idx+3:]
	}

	// Credentials only count before the first path segment.
	if at := strings.Index(key, "@"); at >= 0 {
		slash := strings.Index(key, "/")
		if slash == -1 || at < slash {
			key = key[at+1:]
		}
	}

	key = strings.TrimSuffix(key, "/")
	key = strings.TrimSuffix(key, ".git")

	return key
}
