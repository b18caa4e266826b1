// Command docshelf-admin seeds a running docshelf server with a project
// and an initial documentation version through the HTTP API. Its default
// flags register the service's own documentation, which is handy right
// after a fresh deployment.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Base URL of the docshelf server")
	apiKey := flag.String("api-key", "", "Api-Key of an admin user (required)")
	title := flag.String("title", "Docshelf", "Title of the project to create")
	name := flag.String("name", "docshelf", "Code of the project to create")
	version := flag.String("version", "1.0.0", "Version name to register")
	docURL := flag.String("url", "https://docshelf.readthedocs.io/en/latest/index.html", "URL of the hosted documentation")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	if *apiKey == "" {
		logger.Fatal("an admin -api-key is required")
	}

	client := &apiClient{
		base:   *server,
		apiKey: *apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}

	logger.WithFields(logrus.Fields{
		"server":  *server,
		"project": *name,
	}).Info("Seeding project")

	status, err := client.post("/api/v2/projects", map[string]string{
		"title": *title,
		"name":  *name,
	})
	switch {
	case err != nil:
		logger.WithError(err).Fatal("Failed to create project")
	case status == http.StatusConflict:
		logger.WithField("project", *name).Info("Project already exists, skipping")
	case status != http.StatusCreated:
		logger.WithField("status", status).Fatal("Unexpected response creating project")
	default:
		logger.WithField("project", *name).Info("Project created")
	}

	status, err = client.post("/api/v2/projects/"+*name+"/versions", map[string]string{
		"name": *version,
		"url":  *docURL,
	})
	switch {
	case err != nil:
		logger.WithError(err).Fatal("Failed to add version")
	case status == http.StatusConflict:
		logger.WithField("version", *version).Info("Version already exists, skipping")
	case status != http.StatusCreated:
		logger.WithField("status", status).Fatal("Unexpected response adding version")
	default:
		logger.WithFields(logrus.Fields{
			"version": *version,
			"url":     *docURL,
		}).Info("Version registered")
	}

	logger.Info("Done")
}

// apiClient is a minimal authenticated client for the registry API.
type apiClient struct {
	base   string
	apiKey string
	http   *http.Client
}

func (c *apiClient) post(path string, body interface{}) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("server error: %s", string(msg))
	}
	return resp.StatusCode, nil
}
