// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud contains data structures and utilities for interacting with Google Cloud services.
// This file defines a simplified representation of a Google Cloud Storage (GCS) object,
// the helpers to move between it and a gs:// URI, and V4 URL signing.
package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// GCSObject is a simplified, internal representation of a GCS object.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g., "video/mp4").
}

// URI returns the gs:// form of the object location.
func (o *GCSObject) URI() string {
	return gcsScheme + o.Bucket + "/" + o.Name
}

// ParseGCSURI splits "gs://bucket/path/to/object" into a GCSObject.
func ParseGCSURI(uri string) (*GCSObject, error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return nil, fmt.Errorf("invalid GCS URI %q: missing %s scheme", uri, gcsScheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid GCS URI %q: unable to determine bucket and object", uri)
	}
	return &GCSObject{Bucket: parts[0], Name: parts[1]}, nil
}

// ReadGCSObject downloads the full content of the object at uri.
func ReadGCSObject(ctx context.Context, client *storage.Client, uri string) ([]byte, error) {
	obj, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	reader, err := client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// SignedURL creates a time-limited GET URL for the object at uri. The URL is
// signed by signerEmail through the IAM credentials API, so the process does
// not need a private key of its own.
func SignedURL(ctx context.Context, client *storage.Client, iamClient *credentials.IamCredentialsClient,
	signerEmail string, uri string, expires time.Duration) (string, error) {

	obj, err := ParseGCSURI(uri)
	if err != nil {
		return "", err
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodGet,
		GoogleAccessID: signerEmail,
		Expires:        time.Now().Add(expires),
		SignBytes: func(b []byte) ([]byte, error) {
			resp, err := iamClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", signerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}
	u, err := client.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", obj.Bucket, obj.Name, err)
	}
	return u, nil
}
