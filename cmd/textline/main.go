package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/MrE-Fog/textline"
	"github.com/alecthomas/kong"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/api/option"
)

var cli struct {
	Paths       []string `kong:"arg,optional,help='inputs to read: file paths or gs://bucket/object urls. reads stdin when empty'"`
	Offset      int64    `kong:"help='byte offset to resume from. only valid with a single uncompressed input'"`
	Gzip        bool     `kong:"help='decompress input as gzip. inferred for paths ending in .gz'"`
	JSONL       bool     `kong:"name=jsonl,help='emit one json record per line with source, position and text'"`
	NoBlank     bool     `kong:"help='skip lines that contain only whitespace'"`
	OnlyJSON    bool     `kong:"help='skip lines that are not json objects'"`
	Concurrency int      `kong:"default=4,help='inputs read at once when more than one is given'"`
	Stats       bool     `kong:"help='print line and byte totals to stderr when done'"`
}

type lineRecord struct {
	Source   string `json:"source"`
	Position int64  `json:"pos"`
	Text     string `json:"text"`
}

func gzipped(path string) bool {
	return cli.Gzip || strings.HasSuffix(path, ".gz")
}

func openSource(ctx context.Context, path string, offset int64) (textline.ByteSource, error) {
	var rc io.ReadCloser
	switch {
	case path == "-":
		rc = os.Stdin
	case strings.HasPrefix(path, "gs://"):
		client, err := storage.NewClient(ctx, option.WithoutAuthentication())
		if err != nil {
			return nil, err
		}
		bucket, object, ok := strings.Cut(strings.TrimPrefix(path, "gs://"), "/")
		if !ok {
			return nil, fmt.Errorf("invalid object url %q", path)
		}
		rc, err = client.Bucket(bucket).Object(object).NewRangeReader(ctx, offset, -1)
		if err != nil {
			return nil, err
		}
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		if offset > 0 {
			_, err = f.Seek(offset, io.SeekStart)
			if err != nil {
				_ = f.Close() //nolint:errcheck // already failing
				return nil, err
			}
		}
		rc = f
	}
	if gzipped(path) {
		return textline.NewGzipSource(rc)
	}
	return textline.NewSource(rc), nil
}

func buildFilters() []textline.Filter {
	var filters []textline.Filter
	if cli.NoBlank {
		filters = append(filters, textline.FilterNotBlank())
	}
	if cli.OnlyJSON {
		filters = append(filters, textline.FilterJSONObject())
	}
	return filters
}

func main() {
	k := kong.Parse(&cli)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cli.Paths) == 0 {
		cli.Paths = []string{"-"}
	}
	if cli.Offset > 0 {
		if len(cli.Paths) > 1 {
			k.Fatalf("--offset requires a single input")
		}
		if gzipped(cli.Paths[0]) {
			k.Fatalf("--offset cannot be used with gzip input")
		}
	}

	var lineCount, byteCount int64
	var err error
	if len(cli.Paths) == 1 {
		lineCount, byteCount, err = runSingle(ctx, cli.Paths[0])
	} else {
		lineCount, byteCount, err = runMulti(ctx)
	}
	k.FatalIfErrorf(err, "error reading lines")

	if cli.Stats {
		p := message.NewPrinter(language.English)
		_, _ = p.Fprintf(os.Stderr, "%d lines, %d bytes\n", lineCount, byteCount)
	}
}

func runSingle(ctx context.Context, path string) (lineCount, byteCount int64, err error) {
	src, err := openSource(ctx, path, cli.Offset)
	if err != nil {
		return 0, 0, err
	}
	parser, err := textline.NewAt(src, cli.Offset)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		closeErr := parser.Close()
		if err == nil {
			err = closeErr
		}
	}()
	filters := buildFilters()
	for {
		start := parser.Position()
		line, nextErr := parser.Next()
		if nextErr == io.EOF {
			return lineCount, byteCount, nil
		}
		if nextErr != nil {
			return lineCount, byteCount, nextErr
		}
		if !keep(filters, line) {
			continue
		}
		err = emit(path, start, line)
		if err != nil {
			return lineCount, byteCount, err
		}
		lineCount++
		byteCount += int64(len(line))
	}
}

func runMulti(ctx context.Context) (lineCount, byteCount int64, err error) {
	inputs := make([]textline.Input, 0, len(cli.Paths))
	for _, path := range cli.Paths {
		src, openErr := openSource(ctx, path, 0)
		if openErr != nil {
			for _, input := range inputs {
				_ = input.Source.Close() //nolint:errcheck // already failing
			}
			return 0, 0, openErr
		}
		inputs = append(inputs, textline.Input{Name: path, Source: src})
	}
	scanner, err := textline.NewMultiScanner(ctx, inputs, &textline.ScanOptions{
		Concurrency: cli.Concurrency,
		Filters:     buildFilters(),
	})
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		closeErr := scanner.Close()
		if err == nil {
			err = closeErr
		}
	}()
	for scanner.Scan() {
		line := scanner.Line()
		err = emit(line.Source, line.Position, line.Text)
		if err != nil {
			return lineCount, byteCount, err
		}
		lineCount++
		byteCount += int64(len(line.Text))
	}
	return lineCount, byteCount, scanner.Err()
}

func keep(filters []textline.Filter, line string) bool {
	for _, filter := range filters {
		if !filter([]byte(line)) {
			return false
		}
	}
	return true
}

func emit(source string, position int64, text string) error {
	if !cli.JSONL {
		_, err := fmt.Print(text)
		return err
	}
	out, err := jsoniter.ConfigFastest.Marshal(lineRecord{
		Source:   source,
		Position: position,
		Text:     text,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Printf("%s\n", out)
	return err
}
