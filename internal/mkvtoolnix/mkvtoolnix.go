// Package mkvtoolnix reads attachments out of Matroska files with the
// mkvmerge and mkvextract command line tools.
package mkvtoolnix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/Jeffail/gabs/v2"
)

var (
	ErrAttachmentNotFound = fmt.Errorf("mkvtoolnix: attachment not found")
)

type Attachment struct {
	ID          int
	FileName    string
	ContentType string
	Size        int64
}

// Identify lists the attachments of file as reported by `mkvmerge -J`.
func Identify(ctx context.Context, mkvmergePath, file string) ([]Attachment, error) {
	cmd := exec.CommandContext(ctx, mkvmergePath, "-J", file)

	var stdout, stderr bytes.Buffer

	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// mkvmerge reports problems in its JSON output as well as the exit code
		return nil, fmt.Errorf("mkvtoolnix.Identify: %w: %s%s", err, stderr.String(), stdout.String())
	}

	attachments, err := parseIdentification(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("mkvtoolnix.Identify: %w", err)
	}

	return attachments, nil
}

func parseIdentification(d []byte) ([]Attachment, error) {
	const (
		idPath          = "id"
		fileNamePath    = "file_name"
		contentTypePath = "content_type"
		sizePath        = "size"
	)

	j, err := gabs.ParseJSON(d)
	if err != nil {
		return nil, fmt.Errorf("mkvtoolnix.parseIdentification: %w", err)
	}

	var attachments []Attachment

	for _, e := range j.Path("attachments").Children() {
		id, ok := e.Path(idPath).Data().(float64)
		if !ok {
			continue
		}

		a := Attachment{ID: int(id)}

		if s, ok := e.Path(fileNamePath).Data().(string); ok {
			a.FileName = s
		}
		if s, ok := e.Path(contentTypePath).Data().(string); ok {
			a.ContentType = s
		}
		if n, ok := e.Path(sizePath).Data().(float64); ok {
			a.Size = int64(n)
		}

		attachments = append(attachments, a)
	}

	return attachments, nil
}

// FindAttachment returns the first attachment called fileName.
func FindAttachment(attachments []Attachment, fileName string) (*Attachment, error) {
	for i := range attachments {
		if attachments[i].FileName == fileName {
			return &attachments[i], nil
		}
	}

	return nil, fmt.Errorf("mkvtoolnix.FindAttachment: %w: %s", ErrAttachmentNotFound, fileName)
}

// ExtractAttachment returns the contents of attachment id. mkvextract is
// told to write to /dev/fd/3, which is the write end of a pipe we read from.
func ExtractAttachment(ctx context.Context, mkvextractPath, file string, id int) ([]byte, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("mkvtoolnix.ExtractAttachment: %w", err)
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, mkvextractPath, file, "attachments", strconv.Itoa(id)+":/dev/fd/3")

	var buf bytes.Buffer

	cmd.Stdin = nil
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.ExtraFiles = []*os.File{pw}

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("mkvtoolnix.ExtractAttachment: %w", err)
	}

	// the child holds its own copy; ours has to go so the read sees EOF
	pw.Close()

	data, readErr := io.ReadAll(pr)

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("mkvtoolnix.ExtractAttachment: %w: %s", err, buf.String())
	}

	if readErr != nil {
		return nil, fmt.Errorf("mkvtoolnix.ExtractAttachment: %w", readErr)
	}

	return data, nil
}

// Thumbnail finds the attachment called fileName in file and returns it.
func Thumbnail(ctx context.Context, mkvmergePath, mkvextractPath, file, fileName string) (*Attachment, []byte, error) {
	attachments, err := Identify(ctx, mkvmergePath, file)
	if err != nil {
		return nil, nil, fmt.Errorf("mkvtoolnix.Thumbnail: %w", err)
	}

	attachment, err := FindAttachment(attachments, fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("mkvtoolnix.Thumbnail: %w", err)
	}

	data, err := ExtractAttachment(ctx, mkvextractPath, file, attachment.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("mkvtoolnix.Thumbnail: %w", err)
	}

	return attachment, data, nil
}
