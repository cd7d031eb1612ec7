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

package commands

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// GCSSignedURL attaches an expiring HTTPS link to an uploaded artifact. It
// runs after GCSFileUpload and is skipped when the upload did not happen.
type GCSSignedURL struct {
	cor.BaseCommand
	expires time.Duration
	sign    func(ctx context.Context, uri string, expires time.Duration) (string, error)
}

func NewGCSSignedURL(name string, client *storage.Client, iamClient *credentials.IamCredentialsClient,
	signerEmail string, expires time.Duration) *GCSSignedURL {

	return &GCSSignedURL{
		BaseCommand: *cor.NewBaseCommand(name),
		expires:     expires,
		sign: func(ctx context.Context, uri string, expires time.Duration) (string, error) {
			return cloud.SignedURL(ctx, client, iamClient, signerEmail, uri, expires)
		},
	}
}

func (c *GCSSignedURL) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	artifact, ok := context.Get(ParamVideoArtifact).(*model.VideoArtifact)
	return ok && artifact.PublishedURI != ""
}

func (c *GCSSignedURL) Execute(context cor.Context) {
	artifact := context.Get(ParamVideoArtifact).(*model.VideoArtifact)
	u, err := c.sign(context.GetContext(), artifact.PublishedURI, c.expires)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to sign %s: %w", artifact.PublishedURI, err))
		return
	}
	artifact.SignedURL = u
	c.Succeed(context)
}
