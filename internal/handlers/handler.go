package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/jobstore"
	"promo-studio-bot/internal/mediagroup"
	"promo-studio-bot/internal/product"
	"promo-studio-bot/internal/render"
	"promo-studio-bot/internal/session"
	"promo-studio-bot/internal/telegram"
)

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error
	SendPhotoURL(chatID int64, url string, caption string) error
	SendPhotoBytes(chatID int64, name string, data []byte, caption string) error
	SendTyping(chatID int64)
	AnswerCallback(callbackID string, text string, alert bool) error
	DownloadPhoto(ctx context.Context, fileID string) (*product.Photo, error)
}

type CopyGenerator interface {
	Generate(ctx context.Context, p product.Product) product.CopyResult
}

type ImageRunner interface {
	Run(ctx context.Context, p product.Product, cr product.CopyResult, notify func(imagegen.Task)) imagegen.Tasks
	Retry(ctx context.Context, p product.Product, cr product.CopyResult, tasks imagegen.Tasks, style int) (imagegen.Tasks, error)
}

type Options struct {
	Telegram       Messenger
	Copy           CopyGenerator
	Images         ImageRunner
	Jobs           jobstore.Store
	Sessions       *session.Store
	Renderer       *render.Renderer
	Format         render.Format
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Handler struct {
	tg         Messenger
	copy       CopyGenerator
	images     ImageRunner
	jobs       jobstore.Store
	sessions   *session.Store
	renderer   *render.Renderer
	format     render.Format
	timeout    time.Duration
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.Default()
	}
	format := opts.Format
	if format == "" {
		format = render.FormatPNG
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	return &Handler{
		tg:       opts.Telegram,
		copy:     opts.Copy,
		images:   opts.Images,
		jobs:     opts.Jobs,
		sessions: sessions,
		renderer: renderer,
		format:   format,
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.handleText(ctx, chatID, msg.Text)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processPhotos(ctx, group.ChatID, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID, startText)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "styles":
		return h.tg.SendText(chatID, stylesText())
	case "retry":
		style, err := parseStyleArg(msg.CommandArguments())
		if err != nil {
			return h.tg.SendText(chatID, "❌ Usage: /retry 1, /retry 2 or /retry 3")
		}
		return h.retryLast(ctx, chatID, style)
	case "render":
		style, err := parseStyleArg(msg.CommandArguments())
		if err != nil {
			return h.tg.SendText(chatID, "❌ Usage: /render 1, /render 2 or /render 3")
		}
		return h.renderLast(ctx, chatID, style)
	case "regen":
		job, ok, err := h.lastJob(ctx, chatID)
		if err != nil || !ok {
			return err
		}
		return h.runPass(ctx, chatID, job.Product)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Try /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) error {
	p, err := ParseCaption(text)
	if err != nil {
		return h.tg.SendText(chatID, helpText)
	}
	return h.runPass(ctx, chatID, p)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	// The last size is the largest.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       msg.From.ID,
			Username:     msg.From.UserName,
			MessageID:    msg.MessageID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	return h.processPhotos(ctx, chatID, msg.Caption, []string{fileID})
}

// processPhotos builds the product from the caption and the first photo.
func (h *Handler) processPhotos(ctx context.Context, chatID int64, caption string, fileIDs []string) error {
	p, err := ParseCaption(caption)
	if err != nil {
		return h.tg.SendText(chatID, "📝 Add a caption with at least the product name.\n\n"+captionExample)
	}
	if len(fileIDs) == 0 {
		return h.runPass(ctx, chatID, p)
	}

	h.tg.SendTyping(chatID)

	downloadCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	photo, err := h.tg.DownloadPhoto(downloadCtx, fileIDs[0])
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo. Please send it again.")
	}
	if len(fileIDs) > 1 {
		h.logger.Info("album received, using first photo", "chat_id", chatID, "photos", len(fileIDs))
	}

	p.Photo = photo
	return h.runPass(ctx, chatID, p)
}

// runPass generates copy and the three images for p. A newer pass in the same
// chat cancels this one; a canceled pass stops reporting.
func (h *Handler) runPass(ctx context.Context, chatID int64, p product.Product) error {
	passCtx, pass := h.sessions.Begin(ctx, chatID)
	// Releases the pass on early returns; a no-op after the Finish below.
	defer h.sessions.Finish(pass, "")

	passCtx, cancel := context.WithTimeout(passCtx, h.timeout)
	defer cancel()

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("⏳ Working on %q…", p.Name))

	cr := h.copy.Generate(passCtx, p)
	if !h.sessions.Current(pass) {
		return nil
	}
	if cr.Source == product.SourceTemplate && cr.Diagnostic != "" {
		h.logger.Warn("template copy used", "chat_id", chatID, "reason", cr.Diagnostic)
	}
	if err := h.tg.SendText(chatID, formatCopy(p, cr)); err != nil {
		return err
	}

	notify := imagegen.Notifier(func(t imagegen.Task) {
		if !t.Done() || !h.sessions.Current(pass) {
			return
		}
		h.deliver(chatID, p, cr, t)
	})
	tasks := h.images.Run(passCtx, p, cr, notify)

	if !h.sessions.Current(pass) {
		h.logger.Info("stale pass dropped", "chat_id", chatID, "product", p.Name)
		return nil
	}

	job := jobstore.NewJob(p, cr, tasks)
	if err := h.jobs.Save(ctx, job); err != nil {
		h.logger.Error("save job failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "⚠️ Images are ready, but retries are unavailable for this product.")
	}
	if !h.sessions.Finish(pass, job.ID) {
		return nil
	}

	h.logger.Info("pass finished", "chat_id", chatID, "job_id", job.ID, "copy_source", cr.Source, "failed_styles", tasks.Failed())

	if failed := tasks.Failed(); len(failed) > 0 {
		return h.tg.SendTextWithKeyboard(chatID, failedText(failed), retryKeyboard(job.ID, failed))
	}
	return h.tg.SendText(chatID, "✅ All 3 images are ready. /regen starts over.")
}

// deliver sends one terminal task. Failed styles get a local render instead.
func (h *Handler) deliver(chatID int64, p product.Product, cr product.CopyResult, t imagegen.Task) {
	caption := styleCaption(t.Style, cr.Variant(t.Style))
	if t.State == imagegen.StateSucceeded {
		err := h.tg.SendPhotoURL(chatID, t.URL, caption)
		if err == nil {
			return
		}
		h.logger.Warn("send image url failed, rendering locally", "chat_id", chatID, "style", t.Style, "err", err)
	}

	if err := h.sendRender(chatID, p, cr, t.Style, caption+"\n(local render)"); err != nil {
		h.logger.Error("send render failed", "chat_id", chatID, "style", t.Style, "err", err)
	}
}

func (h *Handler) sendRender(chatID int64, p product.Product, cr product.CopyResult, style int, caption string) error {
	v := cr.Variant(style)
	img := h.renderer.Render(p.PhotoBytes(), v.Title, v.Highlight(), render.Style(style))

	var buf bytes.Buffer
	if err := render.Encode(&buf, img, h.format); err != nil {
		return fmt.Errorf("encode render: %w", err)
	}
	name := fmt.Sprintf("style-%d%s", style+1, h.format.Ext())
	return h.tg.SendPhotoBytes(chatID, name, buf.Bytes(), caption)
}

func (h *Handler) retryLast(ctx context.Context, chatID int64, style int) error {
	job, ok, err := h.lastJob(ctx, chatID)
	if err != nil || !ok {
		return err
	}
	return h.retry(ctx, chatID, job, style)
}

func (h *Handler) retry(ctx context.Context, chatID int64, job jobstore.Job, style int) error {
	h.tg.SendTyping(chatID)

	retryCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	tasks, err := h.images.Retry(retryCtx, job.Product, job.Copy, job.Tasks, style)
	if err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error())
	}
	task := tasks[style]
	if err := h.jobs.SetTask(ctx, job.ID, task); err != nil {
		h.logger.Error("store retried task failed", "job_id", job.ID, "style", style, "err", err)
	}

	h.deliver(chatID, job.Product, job.Copy, task)
	if task.State == imagegen.StateFailed {
		return h.tg.SendTextWithKeyboard(chatID, failedText([]int{style}), retryKeyboard(job.ID, []int{style}))
	}
	return nil
}

func (h *Handler) renderLast(ctx context.Context, chatID int64, style int) error {
	job, ok, err := h.lastJob(ctx, chatID)
	if err != nil || !ok {
		return err
	}
	return h.sendRender(chatID, job.Product, job.Copy, style, styleCaption(style, job.Copy.Variant(style)))
}

// lastJob loads the chat's latest job; ok is false when the user was already told why not.
func (h *Handler) lastJob(ctx context.Context, chatID int64) (jobstore.Job, bool, error) {
	if h.sessions.Running(chatID) {
		return jobstore.Job{}, false, h.tg.SendText(chatID, "⏳ Still generating, please wait for the current product.")
	}
	id, ok := h.sessions.LastJob(chatID)
	if !ok {
		return jobstore.Job{}, false, h.tg.SendText(chatID, "📷 Send a product first.")
	}
	job, err := h.jobs.Get(ctx, id)
	if errors.Is(err, jobstore.ErrNotFound) {
		return jobstore.Job{}, false, h.tg.SendText(chatID, "⌛ That product has expired. Please send it again.")
	}
	if err != nil {
		h.logger.Error("load job failed", "job_id", id, "err", err)
		return jobstore.Job{}, false, h.tg.SendText(chatID, "❌ Something went wrong, please try again.")
	}
	return job, true, nil
}

// parseStyleArg reads the 1-based style number users type.
func parseStyleArg(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, err
	}
	if n < 1 || n > imagegen.StyleCount {
		return 0, fmt.Errorf("%w: %d", imagegen.ErrStyleOutOfRange, n)
	}
	return n - 1, nil
}
