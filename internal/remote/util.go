package remote

import (
	"context"
	"errors"

	"github.com/ekamanam/studysync/internal/common"
)

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

// FindFile returns the first file in parent named exactly name.
func FindFile(ctx context.Context, s Store, name string, parent Handle) (Handle, bool, error) {
	handles, err := s.ListFilesByNamePattern(ctx, escapePattern(name), parent)
	if err != nil {
		return "", false, err
	}
	if len(handles) == 0 {
		return "", false, nil
	}
	return handles[0], true, nil
}

// escapePattern quotes path.Match metacharacters so name matches literally.
func escapePattern(name string) string {
	var b []byte
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '*', '?', '[', '\\':
			b = append(b, '\\')
		}
		b = append(b, name[i])
	}
	return string(b)
}

// PutFile writes data to the file called name in parent. An existing file is
// replaced, otherwise a new one is uploaded. The written handle is returned.
func PutFile(ctx context.Context, s Store, data []byte, name string, parent Handle, mimeType string) (Handle, error) {
	h, found, err := FindFile(ctx, s, name, parent)
	if err != nil {
		return "", err
	}
	if found {
		err = s.ReplaceFile(ctx, h, data)
		if err == nil {
			return h, nil
		}
		if !isNotFound(err) {
			return "", err
		}
	}
	res, err := s.UploadFile(ctx, data, parent, name, mimeType)
	if err != nil {
		return "", err
	}
	return res.Handle, nil
}
