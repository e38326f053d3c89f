// Package handlers binds Telegram endpoints to the capture machine and the
// review pipeline.
package handlers

import (
	"context"

	"curatorbot/bot/notify"
	"curatorbot/bot/review"
	tg "curatorbot/core/telegram"
	"curatorbot/core/telegram/actions"
	"curatorbot/core/telegram/commands"
	"curatorbot/core/telegram/ephemeral"
	"curatorbot/core/telegram/flow"
	tghelpers "curatorbot/core/telegram/helpers"
	"curatorbot/core/telegram/keyboard"
	"curatorbot/core/telegram/middleware"
	"curatorbot/core/telegram/transport"
	"curatorbot/model"

	tele "gopkg.in/telebot.v4"
)

// Handlers owns every user-facing endpoint of the bot.
type Handlers struct {
	machine    *flow.Machine
	pipeline   *review.Pipeline
	dispatcher *notify.Dispatcher
	tracker    *ephemeral.Tracker
	msgr       transport.Messenger
	mods       middleware.ModeratorOptions
}

// New wires the handler set.
func New(
	machine *flow.Machine,
	pipeline *review.Pipeline,
	dispatcher *notify.Dispatcher,
	tracker *ephemeral.Tracker,
	msgr transport.Messenger,
	mods middleware.ModeratorOptions,
) *Handlers {
	return &Handlers{
		machine:    machine,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		tracker:    tracker,
		msgr:       msgr,
		mods:       mods,
	}
}

// Register binds commands and callback actions into the registry.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.handleStart,
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.handleCancelCommand,
		Description: "Abandon the current flow",
	})
	reg.RegisterCommand("/review", commands.Command{
		Handler:     h.requireModerator(h.handleReviewCommand),
		Description: "Browse pending submissions",
		Hidden:      true,
	})
	reg.RegisterCommand("/approve", commands.Command{
		Handler:     h.requireModerator(h.handleApproveCommand),
		Description: "Approve a submission: /approve <id> [note]",
		Hidden:      true,
	})
	reg.RegisterCommand("/reject", commands.Command{
		Handler:     h.requireModerator(h.handleRejectCommand),
		Description: "Reject a submission: /reject <id> [note]",
		Hidden:      true,
	})

	reg.SetTextFallback(h.UnknownText())
	reg.SetCallbackNotFound(h.UnknownCallback())

	dispatch := map[actions.Type]func(tele.Context, actions.Action) error{
		actions.StartFlow:    h.onStartFlow,
		actions.PickCategory: h.onPickCategory,
		actions.SkipField:    h.onSkipField,
		actions.Confirm:      h.onConfirm,
		actions.Cancel:       h.onCancel,
		actions.EditField:    h.onEditField,
		actions.ReviewPage:   h.moderatorAction(h.onReviewPage),
		actions.ReviewOpen:   h.moderatorAction(h.onReviewOpen),
		actions.Approve:      h.moderatorAction(h.onApprove),
		actions.Reject:       h.moderatorAction(h.onReject),
		actions.ReviewBack:   h.moderatorAction(h.onReviewBack),
		actions.Menu:         h.onMenu,
	}
	for t, fn := range dispatch {
		handler := fn
		err := reg.RegisterCallback(string(t), func(c tele.Context) error {
			a, err := actions.FromContext(c)
			if err != nil {
				return h.UnknownCallback()(c)
			}
			return handler(c, a)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) requireModerator(next tele.HandlerFunc) tele.HandlerFunc {
	return middleware.ModeratorOnlyMiddleware(middleware.ModeratorOptions{
		AdminID:    h.mods.AdminID,
		Moderators: h.mods.Moderators,
		OnReject: func(c tele.Context) error {
			return tghelpers.SendText(c, "This command is for moderators.")
		},
	})(next)
}

func (h *Handlers) moderatorAction(next func(tele.Context, actions.Action) error) func(tele.Context, actions.Action) error {
	return func(c tele.Context, a actions.Action) error {
		if !h.mods.Allowed(c.Sender().ID) {
			return c.Respond(&tele.CallbackResponse{Text: "Moderators only"})
		}
		return next(c, a)
	}
}

// handleStart clears leftover previews and shows the root menu.
func (h *Handlers) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	h.tracker.Cleanup(ctx, userID)
	if h.machine.Active(userID) {
		_ = h.machine.HandleCancel(ctx, userID)
	}
	return h.sendMenu(c)
}

func (h *Handlers) onMenu(c tele.Context, _ actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	h.tracker.Cleanup(ctx, c.Sender().ID)
	return tghelpers.EditOrSendMD(c, menuText(), h.menuMarkup(c.Sender().ID))
}

func (h *Handlers) sendMenu(c tele.Context) error {
	return tghelpers.SendMD(c, menuText(), h.menuMarkup(c.Sender().ID))
}

func menuText() string {
	return "*What would you like to do?*\n\n" +
		"📥 Request content we do not have yet\n" +
		"📤 Contribute something to the library\n" +
		"💬 Send feedback to the operators"
}

func (h *Handlers) menuMarkup(userID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := [][]tele.Btn{
		{actions.Button(markup, "📥 Request", actions.Action{Type: actions.StartFlow, Kind: model.KindRequest})},
		{actions.Button(markup, "📤 Contribute", actions.Action{Type: actions.StartFlow, Kind: model.KindContribution})},
		{actions.Button(markup, "💬 Feedback", actions.Action{Type: actions.StartFlow, Kind: model.KindFeedback})},
	}
	if h.mods.Allowed(userID) {
		rows = append(rows, []tele.Btn{
			actions.Button(markup, "🗂 Review queue", actions.Action{Type: actions.ReviewPage, Page: 1}),
		})
	}
	markup.InlineKeyboard = keyboard.ToInlineKeyboard(rows)
	return markup
}

func (h *Handlers) handleCancelCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	if !h.machine.Active(userID) {
		return tghelpers.SendText(c, "Nothing to cancel.")
	}
	return h.machine.HandleCancel(ctx, userID)
}

// NotifySubmitted forwards a fresh submission to the review team. It is the
// machine's onSubmitted hook.
func (h *Handlers) NotifySubmitted(ctx context.Context, sub *model.Submission) {
	h.dispatcher.ForwardModerators(ctx, newSubmissionNotice(sub))
}
