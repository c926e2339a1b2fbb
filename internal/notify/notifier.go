package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quant_bot/internal/models"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// PositionLister — источник открытых позиций для команды /positions.
type PositionLister interface {
	OpenPositions(ctx context.Context) ([]models.Position, error)
}

// Telegram — пассивный нотифайер + обработка одной команды /positions.
type Telegram struct {
	bot       *tgbot.BotAPI
	chatID    int64
	positions PositionLister
}

func NewTelegram(token string, chatID int64, positions PositionLister) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, positions: positions}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// /positions — вывод открытых позиций из журнала
func (t *Telegram) handlePositions(ctx context.Context) {
	if t.positions == nil {
		t.Send("❗️ Журнал позиций не подключен")
		return
	}
	positions, err := t.positions.OpenPositions(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения позиций: %v", err)
		return
	}
	if len(positions) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s %s: %.0f шт. @ %.2f стоп=%.2f тейк=%.2f\n",
			p.Symbol, p.Name, p.Shares, p.EntryPrice, p.Stop, p.TakeProfit)
	}
	t.Send(b.String())
}

// Start: long-polling для команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message != nil && upd.Message.Chat != nil &&
					upd.Message.Chat.ID == t.chatID && upd.Message.IsCommand() {

					switch upd.Message.Command() {
					case "positions":
						go t.handlePositions(ctx)
					}
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {}

// Stdout — заглушка, всё в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
