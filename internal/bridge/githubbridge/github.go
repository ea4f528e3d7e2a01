// Package githubbridge implements a bus.FullBridge backed by the GitHub
// REST API: it polls issue/PR comments into bus events and turns dispatcher
// actions into comments, reviews, label/assignee/milestone edits, merges,
// and closes.
package githubbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/daydemir/ralphd/internal/bus"
)

// Bridge polls and delivers against a single owner/repo. It claims exactly
// one bus target, "github:<owner>/<repo>"; the issue or PR number a given
// event/action concerns travels in ReplyTarget.Token, not the target
// string itself, so the registry's one-target-per-bridge model still
// holds for a repo with many open issues.
type Bridge struct {
	client *github.Client
	owner  string
	repo   string
}

// New builds a Bridge authenticated with a personal access token or GitHub
// App installation token. Token exchange itself (if any) is the caller's
// responsibility; New only wraps the resulting token in an oauth2 static
// source the way the go-github README documents.
func New(ctx context.Context, token, owner, repo string) *Bridge {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	return &Bridge{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}
}

// Name identifies this bridge in the registry.
func (b *Bridge) Name() string { return "github" }

// Targets reports the single repo-scoped target this bridge owns.
func (b *Bridge) Targets() []string { return []string{b.target()} }

func (b *Bridge) target() string {
	return fmt.Sprintf("github:%s/%s", b.owner, b.repo)
}

// pollState is the bridge's opaque, caller-persisted PollEvents state.
type pollState struct {
	LastPollAt time.Time `json:"lastPollAt"`
}

// PollEvents lists issues/PRs updated since the last poll and surfaces
// their new comments as bus events. A comment's issue/PR number is carried
// in the returned Event's ReplyTo.Token so a later action (e.g. a reply
// comment) can address the same thread.
func (b *Bridge) PollEvents(ctx context.Context, state json.RawMessage) ([]bus.Event, json.RawMessage, error) {
	var st pollState
	if len(state) > 0 {
		if err := json.Unmarshal(state, &st); err != nil {
			return nil, state, fmt.Errorf("githubbridge: cannot decode poll state: %w", err)
		}
	}

	pollStart := time.Now().UTC()
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Since:       st.LastPollAt,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var events []bus.Event
	for {
		issues, resp, err := b.client.Issues.ListByRepo(ctx, b.owner, b.repo, opts)
		if err != nil {
			return nil, state, fmt.Errorf("githubbridge: list issues: %w", err)
		}
		for _, issue := range issues {
			number := issue.GetNumber()
			comments, err := b.newComments(ctx, number, st.LastPollAt)
			if err != nil {
				return nil, state, err
			}
			events = append(events, comments...)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	newState, err := json.Marshal(pollState{LastPollAt: pollStart})
	if err != nil {
		return nil, state, fmt.Errorf("githubbridge: cannot encode poll state: %w", err)
	}
	return events, newState, nil
}

func (b *Bridge) newComments(ctx context.Context, number int, since time.Time) ([]bus.Event, error) {
	opts := &github.IssueListCommentsOptions{
		Since:       &since,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var events []bus.Event
	for {
		comments, resp, err := b.client.Issues.ListComments(ctx, b.owner, b.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("githubbridge: list comments on #%d: %w", number, err)
		}
		for _, c := range comments {
			events = append(events, bus.Event{
				ID:       fmt.Sprintf("github-comment-%d", c.GetID()),
				Source:   "github",
				Type:     "comment",
				Severity: bus.SeverityInfo,
				Title:    fmt.Sprintf("Comment on #%d by %s", number, c.GetUser().GetLogin()),
				Body:     c.GetBody(),
				ReplyTo: &bus.ReplyTarget{
					Target: b.target(),
					Token:  fmt.Sprintf("%d", number),
				},
				Context: map[string]any{
					"number":    number,
					"commentId": c.GetID(),
					"url":       c.GetHTMLURL(),
				},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return events, nil
}

// DeliverAction dispatches action.Payload["type"] to the matching GitHub
// API call. Unrecognized payload types are a permanent (non-retryable)
// failure: retrying will not make the type recognized.
func (b *Bridge) DeliverAction(ctx context.Context, action bus.Action) (bus.ActionResult, error) {
	number, err := issueNumber(action.Target.Token)
	if err != nil {
		return bus.ActionResult{Success: false, Retryable: false, Err: err}, nil
	}

	payloadType, _ := action.Payload["type"].(string)
	switch payloadType {
	case bus.PayloadComment:
		return b.comment(ctx, number, action.Payload)
	case bus.PayloadInlineComment:
		return b.inlineComment(ctx, number, action.Payload)
	case bus.PayloadReview:
		return b.review(ctx, number, action.Payload)
	case bus.PayloadRequestReviewers:
		return b.requestReviewers(ctx, number, action.Payload)
	case bus.PayloadMerge:
		return b.merge(ctx, number, action.Payload)
	case bus.PayloadClosePR:
		return b.close(ctx, number)
	case bus.PayloadAddLabels:
		return b.addLabels(ctx, number, action.Payload)
	case bus.PayloadRemoveLabels:
		return b.removeLabels(ctx, number, action.Payload)
	case bus.PayloadAssignUsers:
		return b.assignUsers(ctx, number, action.Payload)
	case bus.PayloadSetMilestone:
		return b.setMilestone(ctx, number, action.Payload)
	default:
		return bus.ActionResult{
			Success:   false,
			Retryable: false,
			Err:       fmt.Errorf("githubbridge: unrecognized action payload type %q", payloadType),
		}, nil
	}
}

func issueNumber(token string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(token, "%d", &n); err != nil || n == 0 {
		return 0, fmt.Errorf("githubbridge: action target token %q is not an issue/PR number", token)
	}
	return n, nil
}

func stringsFromPayload(payload map[string]any, key string) []string {
	raw, _ := payload[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bridge) comment(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	body, _ := payload["body"].(string)
	c, _, err := b.client.Issues.CreateComment(ctx, b.owner, b.repo, number, &github.IssueComment{Body: &body})
	return resultFromCall(err, func() []string { return []string{c.GetHTMLURL()} })
}

func (b *Bridge) inlineComment(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	body, _ := payload["body"].(string)
	path, _ := payload["path"].(string)
	commitID, _ := payload["commitId"].(string)
	line, _ := payload["line"].(float64)
	comment := &github.PullRequestComment{
		Body:     &body,
		Path:     &path,
		CommitID: &commitID,
		Line:     github.Int(int(line)),
	}
	c, _, err := b.client.PullRequests.CreateComment(ctx, b.owner, b.repo, number, comment)
	return resultFromCall(err, func() []string { return []string{c.GetHTMLURL()} })
}

func (b *Bridge) review(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	body, _ := payload["body"].(string)
	event, _ := payload["event"].(string) // APPROVE, REQUEST_CHANGES, COMMENT
	if event == "" {
		event = "COMMENT"
	}
	rv, _, err := b.client.PullRequests.CreateReview(ctx, b.owner, b.repo, number, &github.PullRequestReviewRequest{
		Body:  &body,
		Event: &event,
	})
	return resultFromCall(err, func() []string { return []string{rv.GetHTMLURL()} })
}

func (b *Bridge) requestReviewers(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	reviewers := github.ReviewersRequest{Reviewers: stringsFromPayload(payload, "users")}
	pr, _, err := b.client.PullRequests.RequestReviewers(ctx, b.owner, b.repo, number, reviewers)
	return resultFromCall(err, func() []string { return []string{pr.GetHTMLURL()} })
}

func (b *Bridge) merge(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	method, _ := payload["method"].(string)
	message, _ := payload["message"].(string)
	result, _, err := b.client.PullRequests.Merge(ctx, b.owner, b.repo, number, message, &github.PullRequestOptions{
		MergeMethod: method,
	})
	return resultFromCall(err, func() []string { return []string{result.GetSHA()} })
}

func (b *Bridge) close(ctx context.Context, number int) (bus.ActionResult, error) {
	state := "closed"
	issue, _, err := b.client.Issues.Edit(ctx, b.owner, b.repo, number, &github.IssueRequest{State: &state})
	return resultFromCall(err, func() []string { return []string{issue.GetHTMLURL()} })
}

func (b *Bridge) addLabels(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	labels := stringsFromPayload(payload, "labels")
	_, _, err := b.client.Issues.AddLabelsToIssue(ctx, b.owner, b.repo, number, labels)
	return resultFromCall(err, nil)
}

func (b *Bridge) removeLabels(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	for _, label := range stringsFromPayload(payload, "labels") {
		if _, err := b.client.Issues.RemoveLabelForIssue(ctx, b.owner, b.repo, number, label); err != nil {
			return resultFromCall(err, nil)
		}
	}
	return bus.ActionResult{Success: true}, nil
}

func (b *Bridge) assignUsers(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	users := stringsFromPayload(payload, "users")
	issue, _, err := b.client.Issues.AddAssignees(ctx, b.owner, b.repo, number, users)
	return resultFromCall(err, func() []string { return []string{issue.GetHTMLURL()} })
}

func (b *Bridge) setMilestone(ctx context.Context, number int, payload map[string]any) (bus.ActionResult, error) {
	milestone, _ := payload["milestone"].(float64)
	m := int(milestone)
	issue, _, err := b.client.Issues.Edit(ctx, b.owner, b.repo, number, &github.IssueRequest{Milestone: &m})
	return resultFromCall(err, func() []string { return []string{issue.GetHTMLURL()} })
}

// resultFromCall classifies a go-github error using the response's rate
// limit / abuse-detection signals where present, falling back to
// bus.IsRetryable's text heuristic otherwise.
func resultFromCall(err error, artifacts func() []string) (bus.ActionResult, error) {
	if err == nil {
		var ids []string
		if artifacts != nil {
			ids = artifacts()
		}
		return bus.ActionResult{Success: true, ExternalArtifactIDs: ids}, nil
	}

	retryable := bus.IsRetryable(err)
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if asRateLimitError(err, &rateErr) || asAbuseRateLimitError(err, &abuseErr) {
		retryable = true
	}
	return bus.ActionResult{Success: false, Retryable: retryable, Err: err}, nil
}

func asRateLimitError(err error, target **github.RateLimitError) bool {
	rle, ok := err.(*github.RateLimitError)
	if ok {
		*target = rle
	}
	return ok
}

func asAbuseRateLimitError(err error, target **github.AbuseRateLimitError) bool {
	are, ok := err.(*github.AbuseRateLimitError)
	if ok {
		*target = are
	}
	return ok
}
