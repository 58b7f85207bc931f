package cli

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/exportwins/winsmi/pkg/hawk"
)

// addCredentialFlags registers --id and --key. HAWK_ID and HAWK_KEY are used when unset.
func addCredentialFlags(fs *flag.FlagSet) {
	fs.String("id", "", "Hawk credential id (default $HAWK_ID)")
	fs.String("key", "", "Hawk credential key (default $HAWK_KEY)")
}

func credentialsFromFlags(fs *flag.FlagSet) (*hawk.Credentials, error) {
	id := fs.Lookup("id").Value.String()
	if id == "" {
		id = os.Getenv("HAWK_ID")
	}
	key := fs.Lookup("key").Value.String()
	if key == "" {
		key = os.Getenv("HAWK_KEY")
	}
	if id == "" || key == "" {
		return nil, fmt.Errorf("credential id and key are required")
	}
	return &hawk.Credentials{ID: id, Key: key, Algorithm: hawk.AlgorithmSHA256}, nil
}

// readData returns the request payload. A leading @ names a file, @- reads stdin.
func readData(data string) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "@-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(data[1:])
	default:
		return []byte(data), nil
	}
}

func newRequestCommand() *Command {
	cmd := &Command{
		Name:        "request",
		Description: "Send a Hawk-signed request and verify the signed response",
		Flags:       flag.NewFlagSet("request", flag.ExitOnError),
		Run:         runRequest,
	}

	addCredentialFlags(cmd.Flags)
	cmd.Flags.String("method", http.MethodGet, "HTTP method")
	cmd.Flags.String("data", "", "Request body, @file or @- for stdin")
	cmd.Flags.String("content-type", "", "Request Content-Type (default application/json when a body is sent)")
	cmd.Flags.String("ext", "", "Application specific ext data")
	cmd.Flags.Bool("skip-verify", false, "Do not verify the Server-Authorization header")
	cmd.Flags.Bool("include", false, "Print the response status and headers")
	cmd.Flags.Duration("timeout", 30*time.Second, "Request timeout")

	return cmd
}

func runRequest(args []string) error {
	cmd := newRequestCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	creds, err := credentialsFromFlags(cmd.Flags)
	if err != nil {
		return err
	}
	target := cmd.Flags.Arg(0)
	if target == "" {
		return fmt.Errorf("url is required")
	}

	method := strings.ToUpper(cmd.Flags.Lookup("method").Value.String())
	contentType := cmd.Flags.Lookup("content-type").Value.String()
	skipVerify := cmd.Flags.Lookup("skip-verify").Value.String() == "true"
	include := cmd.Flags.Lookup("include").Value.String() == "true"
	timeout, err := time.ParseDuration(cmd.Flags.Lookup("timeout").Value.String())
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	payload, err := readData(cmd.Flags.Lookup("data").Value.String())
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}

	var body io.Reader
	if payload != nil {
		body = strings.NewReader(string(payload))
		if contentType == "" {
			contentType = "application/json"
		}
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &hawk.Transport{
			Credentials:              creds,
			Ext:                      cmd.Flags.Lookup("ext").Value.String(),
			SkipResponseVerification: skipVerify,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if include {
		fmt.Printf("%s %s\n", resp.Proto, resp.Status)
		resp.Header.Write(os.Stdout)
		fmt.Println()
	}
	fmt.Println(string(respBody))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func newSignCommand() *Command {
	cmd := &Command{
		Name:        "sign",
		Description: "Print a Hawk Authorization header for use with other clients",
		Flags:       flag.NewFlagSet("sign", flag.ExitOnError),
		Run:         runSign,
	}

	addCredentialFlags(cmd.Flags)
	cmd.Flags.String("method", http.MethodGet, "HTTP method")
	cmd.Flags.String("data", "", "Request body, @file or @- for stdin")
	cmd.Flags.String("content-type", "", "Request Content-Type")
	cmd.Flags.String("ext", "", "Application specific ext data")

	return cmd
}

func runSign(args []string) error {
	cmd := newSignCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	creds, err := credentialsFromFlags(cmd.Flags)
	if err != nil {
		return err
	}
	target := cmd.Flags.Arg(0)
	if target == "" {
		return fmt.Errorf("url is required")
	}

	payload, err := readData(cmd.Flags.Lookup("data").Value.String())
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}

	sender, err := hawk.NewSender(creds,
		cmd.Flags.Lookup("method").Value.String(),
		target,
		payload,
		cmd.Flags.Lookup("content-type").Value.String(),
		hawk.SenderOptions{Ext: cmd.Flags.Lookup("ext").Value.String()},
	)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", hawk.AuthorizationHeader, sender.RequestHeader())
	return nil
}
