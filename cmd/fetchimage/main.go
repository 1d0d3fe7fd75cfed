// Command fetchimage downloads a single image to a local file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	defaultURL    = "https://media.giphy.com/media/3oEjI6SIIHBdRxXI40/giphy.gif"
	defaultOutput = "empty_gif.gif"
)

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to download the image. Status code: %d", e.Code)
}

func main() {
	app := cli.App{
		Name:  "fetchimage",
		Usage: "download an image to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				EnvVars: []string{"FETCHIMAGE_URL"},
				Value:   defaultURL,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				EnvVars: []string{"FETCHIMAGE_OUTPUT"},
				Value:   defaultOutput,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
			},
		},
		Action:    run,
		ErrWriter: os.Stderr,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var run = func(cmd *cli.Context) error {
	client := &http.Client{Timeout: cmd.Duration("timeout")}

	err := download(cmd.Context, client, cmd.String("url"), cmd.String("output"))
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		fmt.Fprintln(cmd.App.Writer, statusErr.Error())
		return cli.Exit("", 1)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.App.Writer, "Image downloaded successfully!")
	return nil
}

// download writes the body of a 200 response to path. Other statuses leave path untouched.
func download(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
