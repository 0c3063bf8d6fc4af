package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/objc-runtime/objc"
)

func main() {
	var (
		imageFile   = flag.String("image", "", "Path to a Mach-O executable to map (optional)")
		configFile  = flag.String("config", "", "Path to a TOML config file (optional)")
		pages       = flag.Uint("pages", 0, "Initial guest memory size in 64KiB pages")
		demo        = flag.Bool("demo", false, "Create a few sample classes and objects")
		dumpFile    = flag.String("dump", "", "Write a CBOR snapshot of the object table to this file")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive object browser")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.applyFlags(*pages, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if *imageFile == "" && !*demo && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: objcrun -image <executable> [-dump snapshot.cbor] [-v]")
		fmt.Fprintln(os.Stderr, "       objcrun -demo")
		fmt.Fprintln(os.Stderr, "       objcrun [-image <executable>] -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(cfg, *imageFile, *demo, *dumpFile, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *fileConfig, imageFile string, demo bool, dumpFile string, interactive bool) error {
	ctx := context.Background()

	if interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	if interactive {
		// the TUI owns the screen
		cfg.Log.Level = "fatal"
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	s, err := newSession(ctx, cfg, imageFile, log)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if demo {
		if err := s.runDemo(); err != nil {
			return fmt.Errorf("demo: %w", err)
		}
	}

	if interactive {
		return runInteractive(s, imageFile)
	}

	if s.image != nil {
		fmt.Printf("Image: %s\n", imageFile)
		fmt.Printf("Segments: %d\n", len(s.image.Segments))
		for _, seg := range s.image.Segments {
			fmt.Printf("  %-16s %#08x-%#08x\n", seg.Name, seg.Addr, seg.End())
		}
		fmt.Printf("Dynamic libraries: %d\n", len(s.image.Dylibs))
		for _, d := range s.image.Dylibs {
			fmt.Printf("  %s\n", d)
		}
		fmt.Println()
	}
	printObjects(os.Stdout, s)

	if dumpFile != "" {
		if err := writeSnapshot(dumpFile, s.rt); err != nil {
			return err
		}
		log.Info("snapshot written", zap.String("path", dumpFile))
	}
	return nil
}

func printObjects(w io.Writer, s *session) {
	rows := s.rows()
	fmt.Fprintf(w, "Objects: %d\n", len(rows))
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\n", r)
	}
	heap := s.space.Heap()
	fmt.Fprintf(w, "\nGuest memory: %d bytes, heap %d blocks / %d bytes in use\n",
		s.space.Size(), heap.Blocks(), heap.InUse())
}

func writeSnapshot(path string, rt *objc.Runtime) error {
	data, err := objc.MarshalSnapshot(rt.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
