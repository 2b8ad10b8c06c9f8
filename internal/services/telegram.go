package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spin-rewards-backend/internal/config"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	chatInfoCacheSize = 10000
	sendTimeout       = 10 * time.Second
	chatInfoTimeout   = 5 * time.Second
)

// TelegramRelay talks to the Telegram Bot HTTP API. The main bot receives
// /addbalance commands, the view bot carries admin notifications and chat
// lookups.
type TelegramRelay struct {
	apiURL       string
	mainBotToken string
	viewBotToken string
	adminID      string
	client       *http.Client
	chatCache    *lru.Cache
}

func NewTelegramRelay(cfg *config.Config) *TelegramRelay {
	cache, _ := lru.New(chatInfoCacheSize)
	return &TelegramRelay{
		apiURL:       strings.TrimRight(cfg.TelegramAPIURL, "/"),
		mainBotToken: cfg.MainBotToken,
		viewBotToken: cfg.ViewBotToken,
		adminID:      cfg.AdminID,
		client:       &http.Client{},
		chatCache:    cache,
	}
}

type RelayStatus struct {
	MainBotConfigured bool `json:"main_bot_configured"`
	ViewBotConfigured bool `json:"view_bot_configured"`
	AdminIDConfigured bool `json:"admin_id_configured"`
}

func (r *TelegramRelay) Status() RelayStatus {
	return RelayStatus{
		MainBotConfigured: r.mainBotToken != "",
		ViewBotConfigured: r.viewBotToken != "",
		AdminIDConfigured: r.adminID != "",
	}
}

func (r *TelegramRelay) methodURL(token, method string) string {
	return fmt.Sprintf("%s/bot%s/%s", r.apiURL, token, method)
}

// post sends a form request and hands the response to handle before the
// request context is released.
func (r *TelegramRelay) post(ctx context.Context, timeout time.Duration, endpoint string, form url.Values, handle func(resp *http.Response) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return handle(resp)
}

func (r *TelegramRelay) sendMessage(ctx context.Context, token, chatID, text, parseMode string) bool {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	if parseMode != "" {
		form.Set("parse_mode", parseMode)
	}

	err := r.post(ctx, sendTimeout, r.methodURL(token, "sendMessage"), form, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram sendMessage returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to send telegram message")
		return false
	}
	return true
}

// SendCreditRequest asks the main bot to credit the user.
func (r *TelegramRelay) SendCreditRequest(ctx context.Context, userID string, amount decimal.Decimal) bool {
	if r.mainBotToken == "" || r.adminID == "" {
		log.Warn("Bot token or admin ID not configured")
		return false
	}

	return r.sendMessage(ctx, r.mainBotToken, r.adminID, CreditCommand(userID, amount), "")
}

// CreditCommand is the text the main bot parses to credit a balance.
func CreditCommand(userID string, amount decimal.Decimal) string {
	return fmt.Sprintf("/addbalance %s %s", userID, amount.StringFixed(2))
}

func (r *TelegramRelay) Notify(ctx context.Context, message string) bool {
	if r.viewBotToken == "" || r.adminID == "" {
		log.WithField("message", message).Info("Admin notification (tokens not configured)")
		return false
	}
	return r.sendMessage(ctx, r.viewBotToken, r.adminID, message, "HTML")
}

type getChatResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	} `json:"result"`
}

// ChatInfo describes the Telegram user behind an id for admin alerts.
func (r *TelegramRelay) ChatInfo(ctx context.Context, userID string) string {
	if r.viewBotToken == "" {
		return "Unavailable"
	}

	if cached, ok := r.chatCache.Get(userID); ok {
		return cached.(string)
	}

	form := url.Values{}
	form.Set("chat_id", userID)

	var body getChatResponse
	err := r.post(ctx, chatInfoTimeout, r.methodURL(r.viewBotToken, "getChat"), form, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to get telegram chat info")
		return "Unable to fetch"
	}
	if !body.OK {
		return "Private user"
	}

	info := body.Result.FirstName
	if info == "" {
		info = "Unknown"
	}
	if body.Result.Username != "" {
		info = fmt.Sprintf("%s (@%s)", info, body.Result.Username)
	}

	r.chatCache.Add(userID, info)
	return info
}
