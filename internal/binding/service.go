// Package binding projects a classified, enriched delivery into the flat
// parameter set the dispatch stages consume. Enrichment projections live
// under extensions.*, payload extractions under body.*; the guarded
// ParameterSet keeps the two namespaces from colliding.
package binding

import (
	"context"

	"wren/internal/config"
	"wren/internal/enrichment"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

const tracerName = "router-service"

type Service struct {
	store  *config.Store
	logger logger.Logger
}

func NewService(store *config.Store, log logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// Bind builds the parameter set for one delivery. Registry data is written
// first so a payload field can never shadow it; the Put guard turns any
// collision into an internal error instead of a silent overwrite.
func (s *Service) Bind(ctx context.Context, event *models.WebhookEvent, classification models.ClassificationResult, record models.EnrichmentRecord) (models.ParameterSet, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "binding.bind")
	defer span.End()

	params := models.NewParameterSet()

	if err := params.Put(models.ExtensionParam("resource_id"), record.ResourceID); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	if err := params.Put(models.ExtensionParam("repo_key"), record.RepoKey); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	for category, target := range record.Targets {
		if err := params.Put(models.ExtensionParam("targets."+category.String()), target); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
	}

	repoURL, err := enrichment.ExtractRepoCoordinate(event, s.providerBaseURL(event.Provider))
	if err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}

	fields := extractPayloadFields(event, classification)
	fields.repoURL = repoURL

	for _, b := range []struct{ key, value string }{
		{"repository.url", fields.repoURL},
		{"revision", fields.revision},
		{"branch", fields.branch},
		{"target_branch", fields.targetBranch},
		{"change_number", fields.changeNumber},
		{"actor", fields.actor},
	} {
		if err := params.Put(models.BodyParam(b.key), b.value); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
	}

	s.logger.DebugwCtx(ctx, "parameters bound",
		"event_id", event.ID,
		"provider", event.Provider,
		"category", classification.Category,
		"revision", fields.revision,
		"branch", fields.branch,
	)

	return params, nil
}

func (s *Service) providerBaseURL(provider models.Provider) string {
	pc := s.store.Current().Providers.ByName(provider)
	if pc == nil {
		return ""
	}
	return pc.BaseURL
}

// payloadFields is the fixed body.* extraction set. Fields a provider's
// payload does not carry stay empty.
type payloadFields struct {
	repoURL      string
	revision     string
	branch       string
	targetBranch string
	changeNumber string
	actor        string
}

func extractPayloadFields(event *models.WebhookEvent, classification models.ClassificationResult) payloadFields {
	switch event.Provider {
	case models.ProviderGitHub:
		return extractGitHub(event, classification)
	case models.ProviderGitLab:
		return extractGitLab(event, classification)
	case models.ProviderBitbucket:
		return extractBitbucket(event, classification)
	case models.ProviderGerrit:
		return extractGerrit(event, classification)
	default:
		return payloadFields{}
	}
}

func extractGitHub(event *models.WebhookEvent, classification models.ClassificationResult) payloadFields {
	if event.EventType() == "issue_comment" {
		// Comment payloads carry no head SHA. refs/pull/<n>/head is the
		// stable ref the engine can fetch instead.
		fields := payloadFields{
			changeNumber: event.StringField("issue.number"),
			actor:        event.StringField("sender.login"),
		}
		if fields.changeNumber != "" {
			ref := "refs/pull/" + fields.changeNumber + "/head"
			fields.revision = ref
			fields.branch = ref
		}
		return fields
	}

	fields := payloadFields{
		targetBranch: event.StringField("pull_request.base.ref"),
		changeNumber: event.StringField("pull_request.number"),
		actor:        event.StringField("sender.login"),
	}
	if classification.Category == models.CategoryBuild {
		fields.revision = event.StringField("pull_request.merge_commit_sha")
		fields.branch = event.StringField("pull_request.base.ref")
	} else {
		fields.revision = event.StringField("pull_request.head.sha")
		fields.branch = event.StringField("pull_request.head.ref")
	}
	return fields
}

func extractGitLab(event *models.WebhookEvent, classification models.ClassificationResult) payloadFields {
	if event.EventType() == "Note Hook" {
		return payloadFields{
			revision:     event.StringField("merge_request.last_commit.id"),
			branch:       event.StringField("merge_request.source_branch"),
			targetBranch: event.StringField("merge_request.target_branch"),
			changeNumber: event.StringField("merge_request.iid"),
			actor:        event.StringField("user.username"),
		}
	}

	fields := payloadFields{
		targetBranch: event.StringField("object_attributes.target_branch"),
		changeNumber: event.StringField("object_attributes.iid"),
		actor:        event.StringField("user.username"),
	}
	if classification.Category == models.CategoryBuild {
		fields.revision = event.StringField("object_attributes.merge_commit_sha")
		fields.branch = event.StringField("object_attributes.target_branch")
	} else {
		fields.revision = event.StringField("object_attributes.last_commit.id")
		fields.branch = event.StringField("object_attributes.source_branch")
	}
	return fields
}

func extractBitbucket(event *models.WebhookEvent, classification models.ClassificationResult) payloadFields {
	fields := payloadFields{
		targetBranch: event.StringField("pullRequest.toRef.displayId"),
		changeNumber: event.StringField("pullRequest.id"),
		actor:        event.StringField("actor.name"),
	}
	if classification.Category == models.CategoryBuild {
		fields.revision = event.StringField("pullRequest.properties.mergeCommit.id")
		fields.branch = event.StringField("pullRequest.toRef.displayId")
	} else {
		fields.revision = event.StringField("pullRequest.fromRef.latestCommit")
		fields.branch = event.StringField("pullRequest.fromRef.displayId")
	}
	return fields
}

func extractGerrit(event *models.WebhookEvent, classification models.ClassificationResult) payloadFields {
	revision := event.StringField("patchSet.revision")
	if classification.Category == models.CategoryBuild {
		// Submit strategies may rewrite the commit; newRev is what actually
		// landed on the branch.
		if merged := event.StringField("newRev"); merged != "" {
			revision = merged
		}
	}
	return payloadFields{
		revision:     revision,
		branch:       event.StringField("change.branch"),
		targetBranch: event.StringField("change.branch"),
		changeNumber: event.StringField("change.number"),
		actor:        gerritActor(event),
	}
}

// gerritActor resolves the acting account. The field name varies by event
// type: change-merged carries submitter, comment-added author,
// patchset-created uploader.
func gerritActor(event *models.WebhookEvent) string {
	for _, root := range []string{"submitter", "author", "uploader"} {
		if username := event.StringField(root + ".username"); username != "" {
			return username
		}
		if name := event.StringField(root + ".name"); name != "" {
			return name
		}
	}
	return ""
}
