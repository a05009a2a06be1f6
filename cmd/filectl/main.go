package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/timmy/ossadapter/internal/config"
	"github.com/timmy/ossadapter/internal/logger"
	"github.com/timmy/ossadapter/pkg/ossadapter"
	"github.com/timmy/ossadapter/pkg/storage"
)

const usage = `Usage: filectl [flags] <command> [args]

Commands:
  put <path>       upload a local file, print its descriptor as JSON
  rm <filename>    delete a stored filename (as printed by put)
  url <filename>   print the public URL of a stored filename

Flags:
`

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "warn",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "filectl",
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	folder := flag.String("folder", "", "Override upload.folder")
	id := flag.String("id", "", "File ID for put (default: random UUID)")
	mimeType := flag.String("mime", "", "MIME type for put (default: from extension)")
	versionID := flag.String("version-id", "", "Object version to delete with rm")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		appLogger.Logger.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	command, arg := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	adapterCfg := cfg.AdapterConfig()
	if *folder != "" {
		adapterCfg.Folder = *folder
	}

	adapter, err := ossadapter.New(adapterCfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage adapter")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = appLogger.WithContext(ctx)
	ctx = logger.SetComponent(ctx, "filectl")

	switch command {
	case "put":
		err = put(ctx, adapter, arg, *id, *mimeType)
	case "rm":
		err = remove(ctx, adapter, arg, *versionID)
	case "url":
		fmt.Println(adapter.PublicURL(ossadapter.FileData{Filename: arg}))
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		stop()
		appLogger.WithError(err).WithField("command", command).Fatal("Command failed")
	}
}

func put(ctx context.Context, adapter *ossadapter.Adapter, path, id, mimeType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	if id == "" {
		id = uuid.New().String()
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
	}

	file, err := adapter.Save(ctx, ossadapter.SaveInput{
		Stream:   f,
		Filename: filepath.Base(path),
		ID:       id,
		MimeType: mimeType,
	})
	if err != nil {
		return err
	}

	out := struct {
		*ossadapter.FileData
		Key string `json:"key"`
		URL string `json:"url"`
	}{file, adapter.Key(file.Filename), adapter.PublicURL(*file)}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func remove(ctx context.Context, adapter *ossadapter.Adapter, filename, versionID string) error {
	var opts storage.Params
	if versionID != "" {
		opts = storage.Params{storage.ParamVersionID: versionID}
	}

	if _, err := adapter.Delete(ctx, &ossadapter.FileData{Filename: filename}, opts); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "deleted %s\n", adapter.Key(filename))
	return nil
}
