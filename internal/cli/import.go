package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/koimport/internal/config"
	"github.com/mrlokans/koimport/internal/device"
)

// ImportCommand runs one interactive import of the attached device.
type ImportCommand struct {
	MountPoint string
	VaultDir   string
	Workers    int
	AutoMerge  bool
}

// NewImportCommand creates a new ImportCommand
func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	cfg := config.NewConfig()
	fs.StringVar(&cmd.MountPoint, "mount", cfg.Device.MountPoint, "Mount point of the attached e-reader")
	fs.StringVar(&cmd.VaultDir, "vault", cfg.Vault.Dir, "Root directory of the note vault")
	fs.IntVar(&cmd.Workers, "workers", cfg.Import.Workers, "Concurrent import workers")
	fs.BoolVar(&cmd.AutoMerge, "automerge", cfg.Import.AutoMergeEnabled, "Merge safe updates without prompting")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import annotation exports from the attached e-reader into the vault.\n\n")
		fmt.Fprintf(os.Stderr, "This command:\n")
		fmt.Fprintf(os.Stderr, "  1. Loads book exports from <mount>/koimport-exports\n")
		fmt.Fprintf(os.Stderr, "  2. Matches each book against existing vault documents\n")
		fmt.Fprintf(os.Stderr, "  3. Merges, replaces or creates documents, prompting on conflicts\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -mount /media/kobo -vault ~/vault\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -automerge=false\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the import command
func (cmd *ImportCommand) Run() error {
	if cmd.MountPoint == "" {
		return fmt.Errorf("device mount point is not set (use -mount or DEVICE_MOUNT_POINT)")
	}

	cfg := config.NewConfig()
	cfg.Vault.Dir = cmd.VaultDir
	cfg.Device.MountPoint = cmd.MountPoint
	cfg.Import.Workers = cmd.Workers
	cfg.Import.AutoMergeEnabled = cmd.AutoMerge

	engine, err := NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := device.NewJSONSource(cmd.MountPoint)
	books, err := source.Books(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	prompter := NewTerminalPrompter(os.Stdin, os.Stdout)
	imp := engine.NewImporter(prompter, true)

	summary, err := imp.Run(ctx, books)
	fmt.Printf("\n%d books: %d created, %d merged, %d auto-merged, %d skipped, %d errors\n",
		summary.Total(), summary.Created, summary.Merged, summary.AutoMerged, summary.Skipped, summary.Errors)
	if err != nil && ctx.Err() != nil {
		fmt.Println("Import interrupted; remaining books were skipped.")
		return nil
	}
	return err
}
