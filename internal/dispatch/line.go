package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/lineutil"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/retry"
)

// LINE delivery modes.
const (
	LineBroadcast = "broadcast"
	LineFollowers = "followers"
)

// retryKeySpace namespaces X-Line-Retry-Key UUIDs.
var retryKeySpace = uuid.MustParse("6f1c3c1e-7d0b-4c55-9a53-0c5b2b1d9e41")

// LineAPI is the subset of the Messaging API the dispatcher calls.
// Implementations return the HTTP status code when a response was received.
type LineAPI interface {
	Broadcast(req *messaging_api.BroadcastRequest, retryKey string) (int, error)
	Multicast(req *messaging_api.MulticastRequest, retryKey string) (int, error)
}

// RecipientLister lists LINE user ids for multicast delivery.
type RecipientLister interface {
	List(ctx context.Context) ([]string, error)
}

type lineClient struct {
	api *messaging_api.MessagingApiAPI
}

// NewLineAPI creates a Messaging API client. timeout bounds each HTTP call.
func NewLineAPI(channelToken string, timeout time.Duration) (LineAPI, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken,
		messaging_api.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &lineClient{api: api}, nil
}

func (c *lineClient) Broadcast(req *messaging_api.BroadcastRequest, retryKey string) (int, error) {
	res, _, err := c.api.BroadcastWithHttpInfo(req, retryKey)
	return statusOf(res), err
}

func (c *lineClient) Multicast(req *messaging_api.MulticastRequest, retryKey string) (int, error) {
	res, _, err := c.api.MulticastWithHttpInfo(req, retryKey)
	return statusOf(res), err
}

func statusOf(res *http.Response) int {
	if res == nil {
		return 0
	}
	return res.StatusCode
}

// LineDispatcher posts reminders from the LINE official account, either to
// every friend (broadcast) or to registered followers (multicast).
type LineDispatcher struct {
	api        LineAPI
	mode       string
	recipients RecipientLister
	log        *logger.Logger
}

// NewLineDispatcher creates a dispatcher. recipients is only used in
// followers mode.
func NewLineDispatcher(api LineAPI, mode string, recipients RecipientLister, log *logger.Logger) *LineDispatcher {
	if mode != LineFollowers {
		mode = LineBroadcast
	}
	return &LineDispatcher{api: api, mode: mode, recipients: recipients, log: log.WithModule("dispatch.line")}
}

func (d *LineDispatcher) Name() string { return "line" }

func (d *LineDispatcher) Dispatch(ctx context.Context, r Reminder) error {
	msgs := []messaging_api.MessageInterface{ReminderMessage(r)}

	if d.mode == LineBroadcast {
		status, err := d.api.Broadcast(&messaging_api.BroadcastRequest{Messages: msgs}, RetryKey(r, 0))
		return d.classify(r, status, err)
	}

	users, err := d.recipients.List(ctx)
	if err != nil {
		return apperrors.NewDispatchError(d.Name(), r.ProjectID, fmt.Errorf("list recipients: %w", err))
	}
	if len(users) == 0 {
		d.log.WithField("project_id", r.ProjectID).DebugContext(ctx, "No LINE followers registered; skipping multicast")
		return nil
	}
	for i, chunk := range Chunk(users, lineutil.MaxMulticastRecipients) {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := &messaging_api.MulticastRequest{To: chunk, Messages: msgs}
		status, err := d.api.Multicast(req, RetryKey(r, i))
		if err := d.classify(r, status, err); err != nil {
			return err
		}
	}
	return nil
}

// classify maps the API outcome. 409 means LINE already accepted a request
// with the same retry key, which counts as delivered. Other 4xx except 429
// are not retried.
func (d *LineDispatcher) classify(r Reminder, status int, err error) error {
	if err == nil || status == http.StatusConflict {
		return nil
	}
	dispatchErr := apperrors.NewDispatchError(d.Name(), r.ProjectID, fmt.Errorf("status %d: %w", status, err))
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return retry.Permanent(dispatchErr)
	}
	return dispatchErr
}

// RetryKey derives the X-Line-Retry-Key for chunk i of a reminder: a name
// based UUID over dedupe key, date, kind, channel and chunk. Only retries of
// the same reminder on the same day are coalesced by LINE.
func RetryKey(r Reminder, chunk int) string {
	name := strings.Join([]string{
		r.DedupeKey, r.Date, r.Kind, string(r.Channel), r.Nonce, strconv.Itoa(chunk),
	}, "|")
	return uuid.NewSHA1(retryKeySpace, []byte(name)).String()
}

// ReminderMessage renders a reminder as a Flex card. Urgent reminders get a
// red header.
func ReminderMessage(r Reminder) *messaging_api.FlexMessage {
	color := lineutil.CategoryColor(r.Category)
	if r.Channel == ChannelUrgent {
		color = lineutil.ColorUrgent
	}
	return lineutil.NewCardMessage(r.Title+"\n"+r.Body, lineutil.Card{
		Title:       r.Title,
		Subtitle:    r.Body,
		Body:        r.LongBody,
		HeaderColor: color,
	})
}

// Chunk splits ids into slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
