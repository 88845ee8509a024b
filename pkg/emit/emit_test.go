package emit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceylan/pyfinder-go/pkg/emit"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// fakeSMTPServer accepts exactly one connection and speaks just enough of
// RFC 5321 for net/smtp.SendMail to complete successfully, recording the
// DATA payload it received.
func fakeSMTPServer(t *testing.T) (addr string, received chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	received = make(chan string, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		write := func(s string) { conn.Write([]byte(s + "\r\n")) }

		write("220 fake.smtp ready")
		var data strings.Builder
		inData := false
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")

			if inData {
				if line == "." {
					inData = false
					write("250 OK: message accepted")
					received <- data.String()
					continue
				}
				data.WriteString(line + "\n")
				continue
			}

			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				write("250 fake.smtp")
			case strings.HasPrefix(line, "MAIL FROM"):
				write("250 OK")
			case strings.HasPrefix(line, "RCPT TO"):
				write("250 OK")
			case line == "DATA":
				inData = true
				write("354 Start mail input")
			case line == "QUIT":
				write("221 Bye")
				return
			default:
				write("250 OK")
			}
		}
	}()

	return ln.Addr().String(), received
}

func TestAugmentedID(t *testing.T) {
	assert.Equal(t, "evt1_t00060", emit.AugmentedID("evt1", 60))
	assert.Equal(t, "evt1_t00000", emit.AugmentedID("evt1", 0))
}

func TestWriteEventXMLContainsAttributes(t *testing.T) {
	dir := t.TempDir()
	event := types.FinderEvent{
		OriginTimeEpoch: 1700000000,
		Lat:             42.5,
		Lon:             13.1,
		DepthKM:         8,
		Magnitude:       6.1,
		EngineEventID:   "eng-1",
	}

	path, err := emit.WriteEventXML(dir, event, "catalog-1")
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, `event_id="catalog-1"`)
	assert.Contains(t, s, `netid="FinDer"`)
	assert.Contains(t, s, `event_type="ACTUAL"`)
}

func TestWriteEventDatXMLConvertsToG(t *testing.T) {
	dir := t.TempDir()
	channels := []types.FinderChannel{
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNZ", Lat: 1, Lon: 2, PGACMS2: 9.806},
	}

	path, err := emit.WriteEventDatXML(dir, channels, time.Unix(1700000000, 0))
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `value="1"`)
	assert.Contains(t, string(body), `code="IV.ABC1.00.HNZ"`)
}

func TestWriteRuptureJSONClosesRing(t *testing.T) {
	dir := t.TempDir()
	rupture := types.FinderRupture{
		Points: []types.RupturePoint{
			{Lat: 1, Lon: 2, DepthKM: 3},
			{Lat: 4, Lon: 5, DepthKM: 6},
		},
	}

	path, err := emit.WriteRuptureJSON(dir, rupture, "catalog-1")
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))

	features := doc["features"].([]any)
	require.Len(t, features, 1)
	geometry := features[0].(map[string]any)["geometry"].(map[string]any)
	assert.Equal(t, "MultiPolygon", geometry["type"])

	coords := geometry["coordinates"].([]any)[0].([]any)[0].([]any)
	require.Len(t, coords, 3) // 2 points + closing repeat
	first := coords[0].([]any)
	last := coords[2].([]any)
	assert.Equal(t, first, last)
}

func TestArchiveProductsOnlyZipsJSONAndJPG(t *testing.T) {
	exportDir := t.TempDir()
	tempDataDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "rupture.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "map.jpg"), []byte("jpgdata"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "event.xml"), []byte("<x/>"), 0o644))

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	path, err := emit.ArchiveProducts(tempDataDir, exportDir, now)
	require.NoError(t, err)
	assert.Contains(t, path, "shakemap_output_20260730_120000.zip")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunShakeMapCommandCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell script")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-shakemap.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho ok $1 $2 $3\nexit 0\n"), 0o755))

	stdout, _, err := emit.RunShakeMapCommand(context.Background(), script, "a.xml", "b.xml", "c.json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok a.xml b.xml c.json")
}

func TestSendNotificationDeliversSubjectBodyAndAttachment(t *testing.T) {
	addr, received := fakeSMTPServer(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dir := t.TempDir()
	attachment := filepath.Join(dir, "map.jpg")
	require.NoError(t, os.WriteFile(attachment, []byte("fakejpgbytes"), 0o644))

	cfg := emit.SMTPConfig{Host: host, Port: port, From: "pyfinder@example.test", To: []string{"ops@example.test"}}
	n := emit.Notification{Subject: "Event evt1 stage 60 complete", Body: "see attached", AttachmentPath: attachment}

	err = emit.SendNotification(cfg, n)
	require.NoError(t, err)

	select {
	case payload := <-received:
		assert.Contains(t, payload, "Subject: Event evt1 stage 60 complete")
		assert.Contains(t, payload, "see attached")
		assert.Contains(t, payload, "multipart/mixed")
	case <-time.After(2 * time.Second):
		t.Fatal("server never received DATA payload")
	}
}
