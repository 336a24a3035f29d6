package main_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

const invokeURL = "http://localhost:8080/2015-03-31/functions/function/invocations"

// startRIE runs the test function built into ./rie under aws-lambda-rie.
func startRIE(t *testing.T, env ...string) {
	t.Helper()

	rieCmd := exec.Command("/tmp/aws-lambda-rie", "./rie")
	rieCmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	rieCmd.Stdout = &stdout
	rieCmd.Stderr = &stderr

	if err := rieCmd.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := rieCmd.Process.Signal(os.Interrupt); err != nil {
			t.Fatal(err)
		}
		if err := rieCmd.Wait(); err != nil {
			t.Log(err)
		}
		t.Logf("stdout: %s", stdout.String())
		t.Logf("stderr: %s", stderr.String())
	})

	time.Sleep(2 * time.Second)
}

func invoke(t *testing.T, payload string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	event, err := json.Marshal(map[string]any{
		"awslogs": map[string]string{"data": base64.StdEncoding.EncodeToString(buf.Bytes())},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(invokeURL, "application/json", bytes.NewReader(event))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("rie response: %s", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 OK HTTP status code. Got %d", resp.StatusCode)
	}

	return body
}

func TestRIE_Forward(t *testing.T) {
	received := make(chan []byte, 1)
	intake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		received <- body
		w.WriteHeader(http.StatusAccepted)
	}))
	defer intake.Close()

	startRIE(t, "DD_API_KEY=rie-test-key", "DD_TAGS=env:rie", "TEST_INTAKE_ENDPOINT="+intake.URL)

	body := invoke(t, `{"logGroup": "/rie/app", "logEvents": [{"message": "hello"}, {"message": "world"}]}`)
	var resp struct {
		StatusCode int    `json:"statusCode"`
		Body       string `json:"body"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != `{"message":"Logs forwarded successfully","count":2}` {
		t.Errorf("unexpected function response: %s", body)
	}

	select {
	case batch := <-received:
		want := `[{"ddsource":"cloudwatch","ddtags":"env:rie","hostname":"/rie/app","message":"hello","service":"flask-echo"},` +
			`{"ddsource":"cloudwatch","ddtags":"env:rie","hostname":"/rie/app","message":"world","service":"flask-echo"}]`
		if string(batch) != want {
			t.Errorf("unexpected batch: got=%s, want=%s", batch, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("intake did not receive the batch")
	}
}

func TestRIE_MissingAPIKey(t *testing.T) {
	startRIE(t, "DD_API_KEY=")

	body := invoke(t, `{"logGroup": "/rie/app", "logEvents": [{"message": "hello"}]}`)
	if !bytes.Contains(body, []byte("errorMessage")) || !bytes.Contains(body, []byte("API key not set")) {
		t.Errorf("want configuration error in function response, got %s", body)
	}
}
