package cel

// FilterExpressionExamples documents the predicate syntax available to rule
// authors overriding the built-in classification rules. All expressions see
// body, header, event and branch.
var FilterExpressionExamples = map[string]string{
	"event_type":        `event == 'pull_request'`,
	"payload_field":     `body.action == 'closed'`,
	"nested_field":      `body.pull_request.base.ref == branch`,
	"boolean_field":     `body.pull_request.merged`,
	"in_list":           `body.action in ['opened', 'synchronize', 'reopened']`,
	"has_field":         `has(body.issue.pull_request)`,
	"header_match":      `header['x-event-key'] == 'pr:merged'`,
	"comment_command":   `body.comment.body.matches('^/recheck\\s*$')`,
	"combined":          `event == 'Merge Request Hook' && body.object_attributes.state == 'merged'`,
	"branch_comparison": `body.object_attributes.target_branch == branch`,
}
