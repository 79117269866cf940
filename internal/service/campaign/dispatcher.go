package campaign

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/mailapi"
	"github.com/ignite/outbound/internal/metrics"
	"github.com/ignite/outbound/internal/pkg/distlock"
	"github.com/ignite/outbound/internal/pkg/logger"
	"github.com/ignite/outbound/internal/tracking"
)

// Result is the outcome of one dispatch. Errors hold "<email>: <message>"
// entries in recipient order.
type Result struct {
	Sent   int      `json:"sent"`
	Errors []string `json:"errors"`
}

// Options tunes a Dispatcher. Zero values take the defaults.
type Options struct {
	Concurrency      int
	DefaultFromEmail string
	DefaultFromName  string
	Locks            distlock.Factory
	LockTTL          time.Duration // refresh period is a third of this; zero disables
	Now              func() time.Time
}

// Dispatcher sends campaigns. All methods are safe for concurrent use if the
// underlying stores are.
type Dispatcher struct {
	campaigns  Repository
	recipients RecipientSource
	profiles   ProfileStore
	mailer     Mailer
	injector   Injector
	analytics  tracking.Recorder
	render     *personalizer

	concurrency int
	defaultFrom domain.SenderProfile
	locks       distlock.Factory
	lockTTL     time.Duration
	now         func() time.Time
	log         *logger.Logger
}

func NewDispatcher(campaigns Repository, recipients RecipientSource, profiles ProfileStore,
	mailer Mailer, injector Injector, analytics tracking.Recorder, opts Options) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Locks == nil {
		opts.Locks = distlock.NewFactory(nil, nil, 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		campaigns:   campaigns,
		recipients:  recipients,
		profiles:    profiles,
		mailer:      mailer,
		injector:    injector,
		analytics:   analytics,
		render:      newPersonalizer(),
		concurrency: opts.Concurrency,
		defaultFrom: domain.SenderProfile{SenderName: opts.DefaultFromName, SenderEmail: opts.DefaultFromEmail},
		locks:       opts.Locks,
		lockTTL:     opts.LockTTL,
		now:         opts.Now,
		log:         logger.New("campaign"),
	}
}

// Dispatch sends campaign campaignID of userID to every subscribed recipient.
// It fails only on setup errors; per-recipient failures are reported in the
// Result and the campaign is marked sent regardless. Once started, a dispatch
// runs to completion even if the caller goes away.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID, userID string) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if campaignID == "" {
		return nil, ErrMissingCampaignID
	}

	c, err := d.campaigns.Get(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadySent
	}

	lock := d.locks(distlock.CampaignKey(c.ID))
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadySending
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			d.log.Warn("dispatch lock release failed", "campaign_id", campaignID, "error", err)
		}
	}()

	// Another dispatch may have finished between the first read and Acquire.
	if c, err = d.campaigns.Get(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	if c.IsTerminal() {
		return nil, ErrAlreadySent
	}

	from, err := d.fromAddress(ctx, userID)
	if err != nil {
		return nil, err
	}

	recipients, err := d.recipients.Subscribed(ctx, userID, c.ListID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	if err := d.mailer.Ready(ctx); err != nil {
		return nil, err
	}

	d.log.Info("campaign dispatch started", "campaign_id", c.ID, "recipients", len(recipients))
	stop := distlock.KeepAlive(ctx, lock, d.lockTTL, func(err error) {
		d.log.Warn("dispatch lock refresh failed", "campaign_id", c.ID, "error", err)
	})
	errs := d.sendAll(ctx, c, from, recipients)
	stop()

	res := &Result{Errors: []string{}}
	for _, e := range errs {
		if e == "" {
			res.Sent++
			continue
		}
		res.Errors = append(res.Errors, e)
	}

	if err := d.campaigns.MarkSent(ctx, userID, c.ID, d.now().UTC(), res.Sent); err != nil {
		return res, fmt.Errorf("mark campaign sent: %w", err)
	}

	d.log.Info("campaign dispatch complete", "campaign_id", c.ID, "sent", res.Sent, "failed", len(res.Errors))
	return res, nil
}

// sendAll runs a bounded worker pool over recipients. The returned slice is
// aligned with recipients; an empty string marks a successful submission.
func (d *Dispatcher) sendAll(ctx context.Context, c *domain.Campaign, from string, recipients []domain.Recipient) []string {
	out := make([]string, len(recipients))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := d.concurrency
	if workers > len(recipients) {
		workers = len(recipients)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := d.sendOne(ctx, c, from, recipients[i]); err != nil {
					out[i] = fmt.Sprintf("%s: %s", recipients[i].Email, err.Error())
				}
			}
		}()
	}
	for i := range recipients {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func (d *Dispatcher) sendOne(ctx context.Context, c *domain.Campaign, from string, r domain.Recipient) error {
	html := d.render.renderHTML(c.Body, r)
	html = d.injector.Inject(html, c.ID, r.ID)

	messageID, err := d.mailer.SendEmail(ctx, mailapi.Message{
		From:    from,
		To:      r.Email,
		Subject: d.render.renderText(c.Subject, r),
		HTML:    html,
	})
	if err != nil {
		metrics.IncCampaignRecipient("failed")
		d.log.Warn("recipient submission failed", "campaign_id", c.ID, "recipient", r.Email, "error", err)
		return err
	}
	metrics.IncCampaignRecipient("sent")

	evt := domain.AnalyticsEvent{
		ID:          uuid.NewString(),
		CampaignID:  c.ID,
		RecipientID: r.ID,
		EventType:   domain.EventSent,
		Metadata:    map[string]string{"message_id": messageID},
		CreatedAt:   d.now().UTC(),
	}
	if err := d.analytics.Record(ctx, evt); err != nil {
		d.log.Warn("sent event not recorded", "campaign_id", c.ID, "error", err)
	}
	return nil
}

// fromAddress formats the tenant's sender, falling back to the configured
// default sender when the tenant has none.
func (d *Dispatcher) fromAddress(ctx context.Context, userID string) (string, error) {
	p, err := d.profiles.SenderProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load sender profile: %w", err)
	}
	if p == nil || p.SenderEmail == "" {
		p = &d.defaultFrom
	}
	addr := p.FromAddress()
	if addr == "" {
		return "", ErrNoSender
	}
	if p.SenderName == "" {
		return addr, nil
	}
	return (&mail.Address{Name: p.SenderName, Address: addr}).String(), nil
}

var _ Mailer = (*mailapi.Client)(nil)
