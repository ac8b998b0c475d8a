package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"multiview/config"
	"multiview/engine"
	"multiview/store"
	"multiview/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "add-channel":
		cmdAddChannel(args)
	case "remove-channel":
		cmdRemoveChannel(args)
	case "channels":
		cmdChannels(args)
	case "keywords":
		cmdKeywords(args)
	case "add-video":
		cmdAddVideo(args)
	case "remove-video":
		cmdRemoveVideo(args)
	case "clear":
		cmdClear(args)
	case "list":
		cmdList(args)
	case "refresh":
		cmdRefresh(args)
	case "watch":
		cmdWatch(args)
	case "export":
		cmdExport(args)
	case "import":
		cmdImport(args)
	case "set-key":
		cmdSetKey(args)
	case "settings":
		cmdSettings(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `multiview - track live and upcoming YouTube streams

Usage:
  multiview add-channel <channel-id>       Track a channel
  multiview remove-channel <channel-id>    Stop tracking a channel
  multiview channels                       List tracked channels
  multiview keywords <channel-id> [text]   Set a channel's keyword filter (empty clears)
  multiview add-video <url-or-id>          Track a video directly
  multiview remove-video <video-id>        Stop tracking a video
  multiview clear [-y]                     Remove all tracked channels and videos
  multiview list                           Show live and upcoming streams
  multiview refresh                        Poll once, then show streams
  multiview watch                          Poll on the configured interval until interrupted
  multiview export [-o file]               Export the channel list
  multiview import <file>                  Import a channel list (additive)
  multiview set-key <api-key>              Store the YouTube Data API key
  multiview settings [flags]               Show or change preferences
  multiview help                           Show this help message

Examples:
  multiview set-key AIza...
  multiview add-channel UCxxxxxxxxxxxxxxxxxxxxxx
  multiview keywords UCxxxxxxxxxxxxxxxxxxxxxx "歌, asmr"
  multiview add-video https://www.youtube.com/watch?v=dQw4w9WgXcQ
  multiview settings -interval 10 -auto-remove=false

For help on specific command: multiview <command> -h
`)
}

// app bundles the wired-up components behind the commands.
type app struct {
	cfg    *config.Config
	store  *store.FileStore
	engine *engine.Engine
}

func openApp(ctx context.Context) *app {
	cfg, err := config.Load()
	if err != nil {
		fatal("loading config: %v", err)
	}

	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fatal("creating state directory: %v", err)
		}
	}

	st, err := store.NewFileStore(cfg.StatePath)
	if err != nil {
		if errors.Is(err, store.ErrLockTimeout) {
			fatal("state file is locked by another multiview process")
		}
		fatal("opening state store: %v", err)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey, err = st.LoadCredential()
		if err != nil {
			st.Close()
			fatal("loading credential: %v", err)
		}
	}

	gw, err := youtube.NewGateway(ctx, apiKey, cfg.RetryConfig())
	if err != nil {
		st.Close()
		fatal("creating youtube gateway: %v", err)
	}

	eng, err := engine.New(gw, st)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrSnapshotCorrupt) {
			fatal("state file is corrupt: %v\nMove it aside to start fresh: %s", err, cfg.StatePath)
		}
		fatal("loading state: %v", err)
	}

	return &app{cfg: cfg, store: st, engine: eng}
}

func (a *app) close() {
	a.store.Close()
}

func (a *app) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func cmdAddChannel(args []string) {
	fs := flag.NewFlagSet("add-channel", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview add-channel <channel-id>\n")
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing channel-id\n")
		fs.Usage()
		os.Exit(1)
	}

	a := openApp(context.Background())
	defer a.close()
	ctx, cancel := a.opContext()
	defer cancel()

	ch, err := a.engine.AddChannel(ctx, fs.Arg(0))
	switch {
	case errors.Is(err, engine.ErrNoCredential):
		fatal("no API key configured. Set one with: multiview set-key <api-key>")
	case errors.Is(err, engine.ErrChannelExists):
		fatal("channel %s is already tracked", fs.Arg(0))
	case err != nil:
		fatal("adding channel: %v", err)
	}

	if ch.VideoID != "" {
		fmt.Printf("Tracking %s (%s), currently %s: %s\n", ch.Name, ch.ChannelID, ch.Status, watchURL(ch.VideoID))
	} else {
		fmt.Printf("Tracking %s (%s), no current broadcast\n", ch.Name, ch.ChannelID)
	}
}

func cmdRemoveChannel(args []string) {
	fs := flag.NewFlagSet("remove-channel", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview remove-channel <channel-id>\n")
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing channel-id\n")
		fs.Usage()
		os.Exit(1)
	}

	a := openApp(context.Background())
	defer a.close()

	if err := a.engine.RemoveChannel(fs.Arg(0)); err != nil {
		if errors.Is(err, engine.ErrChannelNotFound) {
			fatal("channel %s is not tracked", fs.Arg(0))
		}
		fatal("removing channel: %v", err)
	}
	fmt.Printf("Removed channel %s\n", fs.Arg(0))
}

func cmdChannels(args []string) {
	fs := flag.NewFlagSet("channels", flag.ExitOnError)
	fs.Parse(args)

	a := openApp(context.Background())
	defer a.close()

	channels := a.engine.Channels()
	if len(channels) == 0 {
		fmt.Println("No channels tracked. Add one with: multiview add-channel <channel-id>")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL ID\tNAME\tSTATUS\tVIDEO\tKEYWORDS")
	for _, ch := range channels {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ch.ChannelID,
			truncate(ch.Name, 30),
			ch.Status,
			ch.VideoID,
			strings.Join(ch.Keywords, ","),
		)
	}
	w.Flush()
}

func cmdKeywords(args []string) {
	fs := flag.NewFlagSet("keywords", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview keywords <channel-id> [text]\n\nAn empty text clears the filter.\n")
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing channel-id\n")
		fs.Usage()
		os.Exit(1)
	}

	a := openApp(context.Background())
	defer a.close()

	text := strings.Join(fs.Args()[1:], " ")
	tokens, err := a.engine.SetChannelKeywords(fs.Arg(0), text)
	if err != nil {
		if errors.Is(err, engine.ErrChannelNotFound) {
			fatal("channel %s is not tracked", fs.Arg(0))
		}
		fatal("setting keywords: %v", err)
	}

	if len(tokens) == 0 {
		fmt.Printf("Cleared keyword filter for %s\n", fs.Arg(0))
	} else {
		fmt.Printf("Keyword filter for %s: %s\n", fs.Arg(0), strings.Join(tokens, ", "))
	}
}

func cmdAddVideo(args []string) {
	fs := flag.NewFlagSet("add-video", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview add-video <url-or-id>\n")
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing url-or-id\n")
		fs.Usage()
		os.Exit(1)
	}

	a := openApp(context.Background())
	defer a.close()
	ctx, cancel := a.opContext()
	defer cancel()

	id, err := a.engine.AddVideo(ctx, fs.Arg(0))
	switch {
	case errors.Is(err, engine.ErrNoVideoID):
		fatal("could not find a video id in %q", fs.Arg(0))
	case errors.Is(err, engine.ErrNoCredential):
		fatal("no API key configured. Set one with: multiview set-key <api-key>")
	case errors.Is(err, engine.ErrNoChannels):
		fatal("no channels tracked; videos can only be added for tracked channels")
	case errors.Is(err, engine.ErrVideoExists):
		fatal("video is already tracked")
	case errors.Is(err, engine.ErrOwnerUnresolved):
		fatal("could not determine the video's channel (video may not exist)")
	case errors.Is(err, engine.ErrOwnerNotTracked):
		fatal("video belongs to a channel that is not tracked")
	case err != nil:
		fatal("adding video: %v", err)
	}
	fmt.Printf("Tracking video %s\n", id)
}

func cmdRemoveVideo(args []string) {
	fs := flag.NewFlagSet("remove-video", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview remove-video <video-id>\n")
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing video-id\n")
		fs.Usage()
		os.Exit(1)
	}

	a := openApp(context.Background())
	defer a.close()

	if err := a.engine.RemoveVideo(fs.Arg(0)); err != nil {
		if errors.Is(err, engine.ErrVideoNotFound) {
			fatal("video %s is not tracked", fs.Arg(0))
		}
		fatal("removing video: %v", err)
	}
	fmt.Printf("Removed video %s\n", fs.Arg(0))
}

func cmdClear(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("y", false, "Skip confirmation")
	fs.Parse(args)

	a := openApp(context.Background())
	defer a.close()

	channels := a.engine.ChannelCount()
	videos := len(a.engine.Videos())
	if channels == 0 && videos == 0 {
		fmt.Println("Nothing tracked.")
		return
	}

	if !*yes {
		fmt.Printf("Remove all %d channels and %d videos? [y/N] ", channels, videos)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	a.engine.Clear()
	fmt.Printf("Removed %d channels and %d videos\n", channels, videos)
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	a := openApp(context.Background())
	defer a.close()
	ctx, cancel := a.opContext()
	defer cancel()

	printDisplay(ctx, a)
}

func cmdRefresh(args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	fs.Parse(args)

	a := openApp(context.Background())
	defer a.close()
	ctx, cancel := a.opContext()
	defer cancel()

	fmt.Fprintf(os.Stderr, "Polling tracked channels...\n")
	if err := a.engine.RunPollCycle(ctx); err != nil {
		if errors.Is(err, engine.ErrNoCredential) {
			fatal("no API key configured. Set one with: multiview set-key <api-key>")
		}
		fatal("poll cycle: %v", err)
	}
	printDisplay(ctx, a)
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Parse(args)

	a := openApp(context.Background())
	defer a.close()

	interval := time.Duration(a.engine.Preferences().PollIntervalMinutes) * time.Minute

	ctx, cancel := a.opContext()
	fmt.Fprintf(os.Stderr, "Polling tracked channels...\n")
	if err := a.engine.RunPollCycle(ctx); err != nil && errors.Is(err, engine.ErrNoCredential) {
		cancel()
		fatal("no API key configured. Set one with: multiview set-key <api-key>")
	}
	printDisplay(ctx, a)
	cancel()

	poller := engine.NewPoller(a.engine, interval, a.cfg.RequestTimeout)
	poller.Start()
	fmt.Fprintf(os.Stderr, "Watching every %s. Press Ctrl+C to stop.\n", interval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Fprintf(os.Stderr, "\nStopping...\n")
	poller.Stop()
}

func printDisplay(ctx context.Context, a *app) {
	entries, err := a.engine.Display(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrNoCredential) {
			fatal("no API key configured. Set one with: multiview set-key <api-key>")
		}
		fatal("computing display: %v", err)
	}

	if len(entries) == 0 {
		if a.engine.ChannelCount() == 0 && len(a.engine.Videos()) == 0 {
			fmt.Println("Nothing tracked. Add a channel with: multiview add-channel <channel-id>")
		} else {
			fmt.Println("Nothing live or upcoming right now.")
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tVIDEO ID\tTITLE\tURL")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.State,
			entry.VideoID,
			truncate(entry.Title, 50),
			watchURL(entry.VideoID),
		)
	}
	w.Flush()
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("o", "", "Write to file instead of stdout")
	fs.Parse(args)

	a := openApp(context.Background())
	defer a.close()

	doc := a.engine.Export()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fatal("encoding export: %v", err)
	}
	data = append(data, '\n')

	if *output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fatal("writing %s: %v", *output, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d channels to %s\n", len(doc.Channels), *output)
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview import <file>\n")
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing file\n")
		fs.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal("reading %s: %v", fs.Arg(0), err)
	}
	var doc engine.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		fatal("parsing %s: %v", fs.Arg(0), err)
	}

	a := openApp(context.Background())
	defer a.close()
	ctx, cancel := a.opContext()
	defer cancel()

	res, err := a.engine.Import(ctx, &doc)
	if err != nil {
		fatal("importing: %v", err)
	}
	fmt.Printf("Imported %d channels, skipped %d already tracked\n", res.Added, res.Skipped)
}

func cmdSetKey(args []string) {
	fs := flag.NewFlagSet("set-key", flag.ExitOnError)
	clearKey := fs.Bool("clear", false, "Remove the stored API key")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: multiview set-key <api-key>\n       multiview set-key -clear\n")
	}
	fs.Parse(args)

	key := ""
	if !*clearKey {
		if fs.NArg() == 0 {
			fmt.Fprintf(os.Stderr, "Error: missing api-key\n")
			fs.Usage()
			os.Exit(1)
		}
		key = strings.TrimSpace(fs.Arg(0))
	}

	a := openApp(context.Background())
	defer a.close()

	if err := a.store.SaveCredential(key); err != nil {
		fatal("saving credential: %v", err)
	}
	if key == "" {
		fmt.Println("API key removed")
	} else {
		fmt.Println("API key saved")
	}
}

func cmdSettings(args []string) {
	a := openApp(context.Background())
	defer a.close()

	prefs := a.engine.Preferences()

	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	interval := fs.Int("interval", prefs.PollIntervalMinutes, "Poll interval in minutes")
	autoRemove := fs.Bool("auto-remove", prefs.AutoRemoveEnded, "Remove ended broadcasts automatically")
	restrict := fs.Bool("restrict", prefs.RestrictToTrackedChannels, "Show only channel-bound videos")
	autoplay := fs.Bool("autoplay", prefs.Autoplay, "Autoplay embedded players")
	mute := fs.Bool("mute", prefs.AutoMute, "Mute autoplaying players")
	badge := fs.Bool("badge", prefs.ShowStatusBadge, "Show live/upcoming badge")
	layout := fs.String("layout", prefs.Layout, "Display layout (grid, pip)")
	columns := fs.Int("columns", prefs.Columns, "Grid column count")
	fs.Parse(args)

	if len(args) == 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "poll interval\t%d min\n", prefs.PollIntervalMinutes)
		fmt.Fprintf(w, "auto-remove ended\t%v\n", prefs.AutoRemoveEnded)
		fmt.Fprintf(w, "restrict to channels\t%v\n", prefs.RestrictToTrackedChannels)
		fmt.Fprintf(w, "autoplay\t%v\n", prefs.Autoplay)
		fmt.Fprintf(w, "mute\t%v\n", prefs.AutoMute)
		fmt.Fprintf(w, "status badge\t%v\n", prefs.ShowStatusBadge)
		fmt.Fprintf(w, "layout\t%s\n", prefs.Layout)
		fmt.Fprintf(w, "columns\t%d\n", prefs.Columns)
		w.Flush()
		return
	}

	prefs.PollIntervalMinutes = *interval
	prefs.AutoRemoveEnded = *autoRemove
	prefs.RestrictToTrackedChannels = *restrict
	prefs.Autoplay = *autoplay
	prefs.AutoMute = *mute
	prefs.ShowStatusBadge = *badge
	prefs.Layout = *layout
	prefs.Columns = *columns

	if err := a.engine.UpdatePreferences(prefs); err != nil {
		fatal("updating settings: %v", err)
	}
	fmt.Println("Settings updated")
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// truncate shortens s to at most maxLen runes. Counting runes keeps
// multibyte titles from being split mid-character.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
