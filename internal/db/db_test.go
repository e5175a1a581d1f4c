//go:build integration

// Package db provides integration tests for SurrealDB document operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/studyforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestDocumentCRUD(t *testing.T) {
	ctx := context.Background()

	doc, err := testDB.CreateDocument(ctx, models.DocumentInput{
		UserID:     "alice",
		Title:      "Thermodynamics Notes",
		FileName:   "thermo.pdf",
		SourceType: "upload",
		Text:       "Heat flows from hot to cold.",
		Metadata:   models.DocumentMetadata{WordsCount: 6, Pages: 1, Format: "pdf"},
	})
	require.NoError(t, err)
	require.NotNil(t, doc)

	id, err := models.RecordIDString(doc.ID)
	require.NoError(t, err)

	got, err := testDB.GetDocument(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "Thermodynamics Notes", got.Title)
	assert.Equal(t, 6, got.Metadata.WordsCount)

	// Scoped to its owner.
	_, err = testDB.GetDocument(ctx, "bob", id)
	assert.True(t, errors.Is(err, ErrNotFound))

	docs, err := testDB.ListDocuments(ctx, "alice", 10)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Empty(t, docs[0].Text, "list omits text bodies")

	require.NoError(t, testDB.DeleteDocument(ctx, "alice", id))
	_, err = testDB.GetDocument(ctx, "alice", id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteForeignDocumentIsNotFound(t *testing.T) {
	ctx := context.Background()

	doc, err := testDB.CreateDocument(ctx, models.DocumentInput{
		UserID:     "carol",
		Title:      "Private",
		SourceType: "text",
		Text:       "secret",
	})
	require.NoError(t, err)

	id, err := models.RecordIDString(doc.ID)
	require.NoError(t, err)

	err = testDB.DeleteDocument(ctx, "mallory", id)
	assert.True(t, errors.Is(err, ErrNotFound))

	// The record must still exist for its owner.
	_, err = testDB.GetDocument(ctx, "carol", id)
	assert.NoError(t, err)
}
