package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	storage "github.com/supabase-community/storage-go"
)

const avatarBucket = "taskly_avatars"

// UploadAvatar stores an uploaded image in the avatar bucket and returns its
// public URL. Existing objects for the same uid are overwritten.
func UploadAvatar(fh *multipart.FileHeader, uid string) (string, error) {
	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		return "", fmt.Errorf("storage: SUPABASE_URL and SUPABASE_KEY must be set")
	}

	client := storage.NewClient(supabaseURL+"/storage/v1", supabaseKey, nil)

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	objectPath := "avatars/" + uid + filepath.Ext(fh.Filename)

	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := client.UploadFile(avatarBucket, objectPath, f, options); err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}

	publicURL := client.GetPublicUrl(avatarBucket, objectPath)
	return publicURL.SignedURL, nil
}
