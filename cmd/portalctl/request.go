package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibolsen/campus-portal/internal/gateway/clientfetch"
	"github.com/vibolsen/campus-portal/internal/payload"
)

func getCmd(app *cliApp) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "GET a backend resource and print the JSON response",
		Example: `  portalctl get /api/courses
  portalctl get /api/exams --query "items[].title"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if err := app.client.Get(cmd.Context(), apiPath(args[0]), &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw, query)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "JMESPath expression applied to the response")
	return cmd
}

func sendCmd(app *cliApp, verb string) *cobra.Command {
	var data string

	method := strings.ToUpper(verb)
	cmd := &cobra.Command{
		Use:   verb + " PATH",
		Short: method + " a JSON body to a backend resource",
		Long: `The body is given with --data, either inline or as @file. "-" or "@-"
reads it from stdin.`,
		Example: fmt.Sprintf(`  portalctl %s /api/announcements --data '{"title":"Hi"}'`, verb),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(cmd, data)
			if err != nil {
				return err
			}
			var raw json.RawMessage
			if err := app.client.Do(cmd.Context(), method, apiPath(args[0]), body, &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw, "")
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, @file or - for stdin")
	return cmd
}

func deleteCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PATH",
		Short: "DELETE a backend resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if err := app.client.Delete(cmd.Context(), apiPath(args[0]), &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw, "")
		},
	}
}

func uploadCmd(app *cliApp) *cobra.Command {
	var (
		files  []string
		fields map[string]string
		put    bool
	)

	cmd := &cobra.Command{
		Use:     "upload PATH",
		Short:   "Send files as a multipart form",
		Example: `  portalctl upload /api/submissions --file file=essay.pdf --field course=MATH101`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 {
				return errors.New("at least one --file is required")
			}
			form := clientfetch.Multipart{Fields: fields}
			for _, part := range files {
				field, path, ok := strings.Cut(part, "=")
				if !ok || field == "" || path == "" {
					return fmt.Errorf("invalid --file %q, want field=path", part)
				}
				f, err := os.Open(path) // #nosec G304 - user-chosen upload
				if err != nil {
					return err
				}
				defer f.Close()
				form.Files = append(form.Files, clientfetch.File{
					Field:       field,
					Name:        filepath.Base(path),
					ContentType: contentTypeFor(path),
					Reader:      f,
				})
			}

			method := http.MethodPost
			if put {
				method = http.MethodPut
			}
			var raw json.RawMessage
			if err := app.client.Do(cmd.Context(), method, apiPath(args[0]), form, &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw, "")
		},
	}
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "File part as field=path (repeatable)")
	cmd.Flags().StringToStringVar(&fields, "field", nil, "Plain form field as key=value")
	cmd.Flags().BoolVar(&put, "put", false, "Use PUT instead of POST")
	return cmd
}

func apiPath(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// readBody returns a json.RawMessage so the transport sends it unchanged.
func readBody(cmd *cobra.Command, data string) (any, error) {
	var raw []byte
	switch {
	case data == "":
		return nil, nil
	case data == "-" || data == "@-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		raw = []byte(data)
	}
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, errors.New("request body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func printJSON(w io.Writer, raw json.RawMessage, query string) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var doc any = raw
	if query != "" {
		path, err := payload.Compile(query)
		if err != nil {
			return fmt.Errorf("invalid --query: %w", err)
		}
		decoded, err := payload.Decode(raw)
		if err != nil {
			return err
		}
		result, _ := path.Search(decoded)
		doc = result
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
