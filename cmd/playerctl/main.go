// Package main provides the player control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/tunechat/internal/api/connect"
	"github.com/osa030/tunechat/internal/infra/tracksource"
)

var (
	app    = kingpin.New("tunechat-playerctl", "tunechat player control client")
	server = app.Flag("server", "Player control address").Default("http://127.0.0.1:8090").String()
	token  = app.Flag("token", "Control token (or set TUNECHAT_CONTROL_TOKEN env)").Envar("TUNECHAT_CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show the playback session")

	// toggle command
	toggleCmd = app.Command("toggle", "Toggle play/pause").Alias("pause")

	// skip command
	skipCmd = app.Command("skip", "Skip the current track")

	// volume command
	volumeCmd   = app.Command("volume", "Set the volume")
	volumeLevel = volumeCmd.Arg("level", "Volume level (0..1)").Required().Float64()

	// watch command
	watchCmd = app.Command("watch", "Stream playback events")

	// reset command
	resetCmd      = app.Command("reset", "Clear a listener's recommendation cursor on the track source")
	resetSource   = resetCmd.Flag("source", "Track source base URL").Default("http://localhost:5000").String()
	resetListener = resetCmd.Flag("listener", "Listener ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if command == resetCmd.FullCommand() {
		reset(ctx)
		return
	}

	var opts []connect.ClientOption
	if *token != "" {
		opts = append(opts, connect.WithInterceptors(apiconnect.NewClientTokenInterceptor(*token)))
	}
	client := apiconnect.NewControlClient(http.DefaultClient, *server, opts...)

	switch command {
	case statusCmd.FullCommand():
		printSession(check(client.Status(ctx)))
	case toggleCmd.FullCommand():
		printSession(check(client.TogglePlayPause(ctx)))
	case skipCmd.FullCommand():
		printSession(check(client.Skip(ctx)))
	case volumeCmd.FullCommand():
		if *volumeLevel < 0 || *volumeLevel > 1 {
			fmt.Println("Error: volume must be between 0 and 1")
			os.Exit(1)
		}
		printSession(check(client.SetVolume(ctx, *volumeLevel)))
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

// check exits on error.
func check(s *structpb.Struct, err error) *structpb.Struct {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return s
}

func printSession(s *structpb.Struct) {
	fields := s.AsMap()

	fmt.Println("\n=== PLAYBACK SESSION ===")
	fmt.Printf("State: %v\n", fields["state"])
	fmt.Printf("Playing: %v\n", fields["is_playing"])
	fmt.Printf("Volume: %.2f\n", fields["volume"])
	fmt.Printf("Retry Count: %v\n", fields["retry_count"])
	if pending, _ := fields["advance_pending"].(bool); pending {
		fmt.Println("Advance Pending: true")
	}

	if t, ok := fields["track"].(map[string]any); ok {
		fmt.Println("\nCurrent Track:")
		printTrack(t)
	} else {
		fmt.Println("\nCurrent Track: (none)")
	}
	if t, ok := fields["prefetched"].(map[string]any); ok {
		fmt.Println("\nUp Next:")
		printTrack(t)
	}
}

func printTrack(t map[string]any) {
	fmt.Printf("  Name: %v\n", t["song_name"])
	fmt.Printf("  Artist: %v\n", t["artist_name"])
	if src, _ := t["source"].(string); src != "" {
		fmt.Printf("  Source: %s\n", src)
	}
}

func watch(ctx context.Context, client *apiconnect.ControlClient) {
	stream, err := client.WatchEvents(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Watching playback events (Ctrl+C to stop)...")
	for stream.Receive() {
		fields := stream.Msg().AsMap()
		line := fmt.Sprintf("[%s] %v state=%v", time.Now().Format("15:04:05"), fields["type"], fields["state"])
		if t, ok := fields["track"].(map[string]any); ok {
			line += fmt.Sprintf(" track=%q by %q", t["song_name"], t["artist_name"])
		}
		if e, ok := fields["error"]; ok {
			line += fmt.Sprintf(" error=%v", e)
		}
		fmt.Println(line)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream ended: %v\n", err)
		os.Exit(1)
	}
}

func reset(ctx context.Context) {
	client, err := tracksource.New(tracksource.Config{BaseURL: *resetSource, ListenerID: *resetListener})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := client.Reset(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cursor reset for listener %s\n", *resetListener)
}
