// Package notify delivers decision outcomes to submitters, forwards payloads
// to the moderator group, and fans approved content out to public channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"curatorbot/core/logger"
	"curatorbot/core/telegram/format"
	"curatorbot/core/telegram/transport"
	"curatorbot/model"
)

// Targets enumerates the configured notification recipients.
type Targets struct {
	AdminID    int64
	Moderators []int64
	Channels   []int64
}

// Recipients returns the admin plus every moderator, deduplicated.
func (t Targets) Recipients() []int64 {
	seen := make(map[int64]bool, len(t.Moderators)+1)
	out := make([]int64, 0, len(t.Moderators)+1)
	for _, id := range append([]int64{t.AdminID}, t.Moderators...) {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Dispatcher performs all outbound notification traffic.
type Dispatcher struct {
	msgr    transport.Messenger
	targets Targets
}

// NewDispatcher wires a dispatcher against the transport and targets.
func NewDispatcher(msgr transport.Messenger, targets Targets) *Dispatcher {
	return &Dispatcher{msgr: msgr, targets: targets}
}

// refPrefix marks the machine-extractable submission reference embedded in
// every decision notice. Replies are correlated by re-extracting it from the
// quoted message text, not from transport thread metadata.
const refPrefix = "Ref:"

var refPattern = regexp.MustCompile(`Ref: ([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`)

// ExtractRef pulls the submission reference out of a previously sent notice.
func ExtractRef(text string) (string, bool) {
	m := refPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NotifySubmitter sends exactly one message describing the decision, carrying
// the review note and attachment when present.
func (d *Dispatcher) NotifySubmitter(ctx context.Context, sub *model.Submission) error {
	var b strings.Builder
	switch sub.Status {
	case model.StatusApproved:
		b.WriteString("✅ Your submission was approved!")
	case model.StatusRejected:
		b.WriteString("❌ Your submission was not approved.")
	default:
		return fmt.Errorf("notify: submission %s is not decided", sub.ID)
	}
	if note := sub.Note(); note != "" {
		fmt.Fprintf(&b, "\nModerator note: %s", escapeMD(note))
	}
	fmt.Fprintf(&b, "\n\n%s %s", refPrefix, sub.ID)
	text := b.String()

	var err error
	if sub.HasAttachment() {
		_, err = d.msgr.SendPhoto(ctx, sub.UserID, transport.Attachment{
			FileID:  *sub.Attachment,
			Caption: text,
		}, nil)
	} else {
		_, err = d.msgr.Send(ctx, sub.UserID, text, nil)
	}
	if err != nil {
		return fmt.Errorf("notify: submitter %d: %w", sub.UserID, err)
	}
	logger.Info(ctx, "notify", "submitter.notified",
		slog.Int64("user_id", sub.UserID),
		slog.String("submission_id", sub.ID),
		slog.String("status", string(sub.Status)),
	)
	return nil
}

// ForwardModerators delivers the payload to every moderator and the admin.
// Each delivery is attempted independently; one failure never blocks the rest.
func (d *Dispatcher) ForwardModerators(ctx context.Context, text string) {
	for _, id := range d.targets.Recipients() {
		if _, err := d.msgr.Send(ctx, id, text, nil); err != nil {
			logger.Warn(ctx, "notify", "moderator.forward_failed",
				slog.Int64("moderator_id", id),
				slog.String("err", err.Error()),
			)
		}
	}
}

// Publish fans approved content out to every configured public channel and
// reports how many deliveries succeeded out of how many were configured.
// A single channel failure never aborts the remaining deliveries.
func (d *Dispatcher) Publish(ctx context.Context, sub *model.Submission) (delivered, configured int) {
	configured = len(d.targets.Channels)
	text := renderPublication(sub)
	for _, ch := range d.targets.Channels {
		var err error
		if sub.HasAttachment() {
			_, err = d.msgr.SendPhoto(ctx, ch, transport.Attachment{
				FileID:  *sub.Attachment,
				Caption: text,
			}, nil)
		} else {
			_, err = d.msgr.Send(ctx, ch, text, nil)
		}
		if err != nil {
			logger.Warn(ctx, "notify", "publish.channel_failed",
				slog.Int64("channel_id", ch),
				slog.String("submission_id", sub.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		delivered++
	}
	logger.Info(ctx, "notify", "publish.fanout",
		slog.String("submission_id", sub.ID),
		slog.Int("delivered", delivered),
		slog.Int("configured", configured),
	)
	return delivered, configured
}

func renderPublication(sub *model.Submission) string {
	var b strings.Builder
	if sub.Title != "" {
		fmt.Fprintf(&b, "*%s*\n\n", escapeMD(sub.Title))
	}
	if sub.Content != "" {
		b.WriteString(escapeMD(sub.Content))
	}
	return strings.TrimSpace(b.String())
}

// escapeMD keeps user-authored markup characters from breaking the Markdown
// parse mode the transport sends with.
func escapeMD(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}
