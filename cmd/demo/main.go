// Console walkthrough of the chat flow. No Postgres, Redis or messaging
// provider needed: everything runs against in-memory stand-ins and the demo
// catalog. Type text, or type a button's reply id to "tap" it.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/fsm"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/adapters/shop"
	"commerce-chat-bot/internal/usecase"
)

const demoCustomer = "15550000000"

type memClaims struct{ seen map[string]bool }

func (m *memClaims) Claim(ctx context.Context, eventID, customerID string, receivedAt time.Time) (bool, error) {
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

type memConvRepo struct {
	convs map[string]*model.Conversation
}

func (r *memConvRepo) Find(ctx context.Context, tx repository.Tx, customerID string) (*model.Conversation, error) {
	c, ok := r.convs[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *memConvRepo) Save(ctx context.Context, tx repository.Tx, c *model.Conversation) error {
	r.convs[c.CustomerID] = c
	return nil
}

type nopLocker struct{}

func (nopLocker) TryLock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// printDispatcher short-circuits the job queue: outbound messages render to
// the console the moment the pipeline enqueues them.
type printDispatcher struct{}

func (printDispatcher) Dispatch(ctx context.Context, hook string, payload []byte, runAt time.Time) (string, error) {
	var m model.OutboundMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", err
	}
	fmt.Printf("\nbot> %s\n", m.Text)
	for _, row := range m.Buttons {
		for _, b := range row {
			fmt.Printf("     [%s -> %s]\n", b.Label, b.ReplyID)
		}
	}
	return "demo", nil
}

// DispatchArgs swallows background hooks like the stale cart sweep; the
// demo has no queue to run them on.
func (printDispatcher) DispatchArgs(ctx context.Context, hook string, args map[string]string, runAt time.Time) (string, error) {
	return "demo", nil
}

func main() {
	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	demo := shop.NewDemoShop()
	registry := usecase.NewActionRegistry(nil, &log)
	usecase.NewCommerceActions(demo, demo, demo, &log).RegisterAll(registry)
	registry.Freeze()

	classifier := usecase.NewClassifyUseCase(nil, 0.5, time.Second, &log)
	convs := &memConvRepo{convs: map[string]*model.Conversation{}}
	pipeline := usecase.NewPipelineUseCase(
		&memClaims{seen: map[string]bool{}}, convs, nopLocker{},
		classifier, fsm.New(), registry, printDispatcher{}, &log,
	)

	fmt.Println("Chat demo. Try: hi, catalog, category_coffee, product_sencha, qty_2, cart, checkout.")
	fmt.Println("Ctrl-D to quit.")

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	seq := 0
	for {
		fmt.Print("\nyou> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		seq++
		ev := model.InboundEvent{
			EventID:    fmt.Sprintf("demo-%d", seq),
			CustomerID: demoCustomer,
			ReceivedAt: time.Now(),
		}
		// A line matching the reply grammar counts as a button tap.
		if _, ok := model.DecodeReplyID(line); ok {
			ev.ReplyID = line
		} else {
			ev.Text = line
		}

		if err := pipeline.ProcessInbound(ctx, ev); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		if c, err := convs.Find(ctx, nil, demoCustomer); err == nil {
			fmt.Printf("     (state: %s)\n", c.State)
		}
	}
}
