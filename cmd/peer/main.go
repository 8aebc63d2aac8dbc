// Headless peer client: negotiates a paired session through the relay,
// streams synthetic audio to the AI facilitator and the remote peer, and
// prints the session report on exit.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/ai"
	"github.com/Shivyyyy-git/volley-peer-app/internal/config"
	"github.com/Shivyyyy-git/volley-peer-app/internal/domain"
	"github.com/Shivyyyy-git/volley-peer-app/internal/media"
	"github.com/Shivyyyy-git/volley-peer-app/internal/rtc"
	"github.com/Shivyyyy-git/volley-peer-app/internal/session"
	"github.com/Shivyyyy-git/volley-peer-app/internal/signal"
	"github.com/Shivyyyy-git/volley-peer-app/internal/signalclient"
	"github.com/Shivyyyy-git/volley-peer-app/internal/telemetry"
)

func main() {
	var (
		joinID     = flag.String("join", "", "session id to join; empty starts a new session")
		sourceKind = flag.String("source", "tone", "audio source: tone or silence")
		relayURL   = flag.String("relay", "", "signaling relay websocket url (overrides config)")
	)
	flag.Parse()

	ctx, cancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}
	telemetry.InitLogger(cfg.LogFile)
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}

	source, err := media.Open(*sourceKind)
	if err != nil {
		log.Fatal().Err(err).Str("kind", *sourceKind).Msg("cannot open audio source")
	}

	client := signalclient.New(cfg.RelayURL)
	neg := rtc.NewNegotiator(client, cfg.StunServers, cfg.LinkBase)

	ctrl, err := session.New(session.Options{
		Negotiation: neg,
		Signaling:   client,
		Source:      source,
		Stream:      ai.NewGeminiLive(cfg.GeminiAPIKey, cfg.GeminiLiveModel),
		Reporter:    ai.NewGeminiReporter(cfg.GeminiAPIKey, cfg.GeminiReportModel),
	}, session.Events{
		OnState: func(s rtc.State) {
			log.Info().Str("module", "peer").Str("state", s.String()).Msg("negotiation state")
		},
		OnTranscript: func(e domain.TranscriptEntry) {
			fmt.Printf("%s: %s\n", e.Speaker.Label(), e.Text)
		},
		OnAlert: func(a domain.RiskAlert) {
			fmt.Printf("⚠️  %s (press d to dismiss)\n", a.Message)
		},
		OnPrompt: func(p domain.Prompt, index, total int) {
			fmt.Printf("Prompt %d/%d [%s]: %s\n", index+1, total, p.SpeakerTurn, p.Question)
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build session controller")
	}

	if *joinID == "" {
		link, err := ctrl.StartAsInitiator(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot start session")
		}
		fmt.Printf("Share this link with your peer: %s\n", link)
	} else {
		if err := ctrl.StartAsJoiner(ctx, signal.SessionID(*joinID)); err != nil {
			log.Fatal().Err(err).Msg("cannot join session")
		}
		fmt.Printf("Joining session %s\n", *joinID)
	}

	go func() {
		<-ctx.Done()
		finish(ctrl)
	}()

	fmt.Println("Commands: n = next prompt, d = dismiss alert, q = quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "n", "":
			if err := ctrl.AdvancePrompt(ctx); err != nil {
				fmt.Println(err)
			}
		case "d":
			ctrl.DismissAlert()
		case "q":
			finish(ctrl)
			return
		}
	}
	finish(ctrl)
}

func finish(ctrl *session.Controller) {
	rep, err := ctrl.EndSession(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("report generation failed")
		return
	}
	if rep == nil {
		return
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("cannot render report")
		return
	}
	fmt.Println(string(data))
}
