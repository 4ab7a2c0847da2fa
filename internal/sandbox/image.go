package sandbox

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// imageDefinition is the sandbox image. Agent CLIs are installed at first
// container start into the persisted packages volume, so the base stays
// small.
const imageDefinition = `FROM node:22-bookworm-slim

RUN apt-get update && apt-get install -y --no-install-recommends \
        git curl ca-certificates ripgrep jq python3 \
    && rm -rf /var/lib/apt/lists/*

RUN useradd -m -s /bin/bash agent
USER agent
WORKDIR /workspace

ENV NPM_CONFIG_PREFIX=/home/agent/.local
ENV PATH=/home/agent/.local/bin:$PATH

CMD ["sleep", "infinity"]
`

// ImageBuilder provisions the sandbox image. The image tag is a content
// hash of the definition, so any change to the definition is detected as
// "image missing" and triggers a rebuild instead of silently reusing a
// stale image.
type ImageBuilder struct {
	runtime string
	name    string
}

// NewImageBuilder creates a builder for the given container CLI and image name.
func NewImageBuilder(runtime, name string) *ImageBuilder {
	return &ImageBuilder{runtime: runtime, name: name}
}

// Tag returns the content-addressed image tag.
func (b *ImageBuilder) Tag() string {
	sum := blake2b.Sum256([]byte(imageDefinition))
	return fmt.Sprintf("%s:%s", b.name, hex.EncodeToString(sum[:6]))
}

// Ensure builds the image if the content-addressed tag is not present.
func (b *ImageBuilder) Ensure(ctx context.Context) (string, error) {
	tag := b.Tag()

	if _, err := runCLI(ctx, b.runtime, "image", "inspect", tag); err == nil {
		return tag, nil
	}

	dir, err := os.MkdirTemp("", "agentforge-image-")
	if err != nil {
		return "", fmt.Errorf("image build dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(imageDefinition), 0o644); err != nil {
		return "", fmt.Errorf("write image definition: %w", err)
	}

	if _, err := runCLI(ctx, b.runtime, "build", "-t", tag, dir); err != nil {
		return "", fmt.Errorf("build image %s: %w", tag, err)
	}
	return tag, nil
}
