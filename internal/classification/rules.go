package classification

import (
	"wren/internal/config"
	"wren/pkg/models"
)

// Built-in classification rules per provider, expressed over the variables
// `body` (parsed payload), `header`, `event` (event-type header value, or
// body.type for gerrit), and `branch` (the provider's tracked branch).
//
// Build rules precede review rules; within a category, list order is
// evaluation order. A deployment that sets providers.<name>.rules replaces
// the provider's whole set.

func DefaultRules(provider models.Provider) []config.RuleConfig {
	switch provider {
	case models.ProviderGitHub:
		return githubRules
	case models.ProviderGitLab:
		return gitlabRules
	case models.ProviderBitbucket:
		return bitbucketRules
	case models.ProviderGerrit:
		return gerritRules
	default:
		return nil
	}
}

var githubRules = []config.RuleConfig{
	{
		Name:       "pull-request-merged",
		Category:   "build",
		Expression: `event == 'pull_request' && body.action == 'closed' && body.pull_request.merged && body.pull_request.base.ref == branch`,
	},
	{
		Name:       "pull-request-updated",
		Category:   "review",
		Expression: `event == 'pull_request' && body.action in ['opened', 'synchronize', 'reopened']`,
	},
	{
		// issue_comment fires for plain issues too; has(body.issue.pull_request)
		// keeps this to pull requests, and only open ones re-trigger.
		Name:       "recheck-comment",
		Category:   "review",
		Expression: `event == 'issue_comment' && body.action == 'created' && has(body.issue.pull_request) && body.issue.state == 'open' && body.comment.body.matches('^/recheck\\s*$')`,
	},
}

var gitlabRules = []config.RuleConfig{
	{
		Name:       "merge-request-merged",
		Category:   "build",
		Expression: `event == 'Merge Request Hook' && body.object_attributes.state == 'merged' && body.object_attributes.target_branch == branch`,
	},
	{
		Name:       "merge-request-updated",
		Category:   "review",
		Expression: `event == 'Merge Request Hook' && body.object_attributes.action in ['open', 'update', 'reopen']`,
	},
	{
		Name:       "recheck-comment",
		Category:   "review",
		Expression: `event == 'Note Hook' && body.object_attributes.noteable_type == 'MergeRequest' && body.merge_request.state == 'opened' && body.object_attributes.note.matches('^/recheck\\s*$')`,
	},
}

// Bitbucket Server has no comment re-trigger: pr:comment:added carries no
// usable linkage for it, so review classification rests on PR lifecycle
// events alone.
var bitbucketRules = []config.RuleConfig{
	{
		Name:       "pull-request-merged",
		Category:   "build",
		Expression: `event == 'pr:merged' && body.pullRequest.toRef.displayId == branch`,
	},
	{
		Name:       "pull-request-updated",
		Category:   "review",
		Expression: `event in ['pr:opened', 'pr:from_ref_updated']`,
	},
}

var gerritRules = []config.RuleConfig{
	{
		Name:       "change-merged",
		Category:   "build",
		Expression: `body.type == 'change-merged' && body.change.branch == branch`,
	},
	{
		Name:       "patchset-created",
		Category:   "review",
		Expression: `body.type == 'patchset-created'`,
	},
	{
		// Gerrit wraps comments as "Patch Set N:\n\n<text>", hence (?m).
		Name:       "recheck-comment",
		Category:   "review",
		Expression: `body.type == 'comment-added' && body.change.status == 'NEW' && body.comment.matches('(?m)^/recheck\\s*$')`,
	},
}
