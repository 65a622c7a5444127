package resource

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"imagegen-server/internal/models"
)

// AgentIDPlaceholder подставляется в корень вывода вместо ID агента.
const AgentIDPlaceholder = "{agent_id}"

// objectKeyPrefix - префикс ключей в объектном хранилище.
const objectKeyPrefix = "resources"

// Helper строит записи Resource для записанных файлов.
type Helper struct {
	storageType models.StorageType
	outputRoot  string
	now         func() time.Time
}

// NewHelper создает Helper.
func NewHelper(storageType models.StorageType, outputRoot string) *Helper {
	return &Helper{
		storageType: storageType,
		outputRoot:  outputRoot,
		now:         time.Now,
	}
}

// StorageType возвращает тип хранилища новых ресурсов.
func (h *Helper) StorageType() models.StorageType { return h.storageType }

// RootOutputDir возвращает корень вывода с подставленным ID агента.
// Если ID нет, плейсхолдер вместе с разделителем убирается.
func (h *Helper) RootOutputDir(agentID *string) string {
	root := h.outputRoot
	if !strings.Contains(root, AgentIDPlaceholder) {
		return root
	}
	if agentID != nil && *agentID != "" {
		return strings.ReplaceAll(root, AgentIDPlaceholder, *agentID)
	}
	root = strings.ReplaceAll(root, AgentIDPlaceholder+"/", "")
	return strings.ReplaceAll(root, AgentIDPlaceholder, "")
}

// IsPathSegment сообщает, что s - один элемент пути без разделителей и переходов вверх.
// Так проверяются имена файлов и ID агента перед подстановкой в путь или ключ.
func IsPathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, `/\`) {
		return false
	}
	return filepath.Base(s) == s
}

// ObjectKey возвращает ключ объекта для файла: resources/[agent/]name.
func ObjectKey(fileName string, agentID *string) string {
	if agentID != nil && *agentID != "" {
		return path.Join(objectKeyPrefix, *agentID, fileName)
	}
	return path.Join(objectKeyPrefix, fileName)
}

// MakeWrittenFileResource собирает Resource для уже записанного файла finalPath.
func (h *Helper) MakeWrittenFileResource(fileName, finalPath string, agentID *string, channel models.Channel) (*models.Resource, error) {
	if !IsPathSegment(fileName) {
		return nil, fmt.Errorf("%w: file name %q is not a bare file name", models.ErrInvalidInput, fileName)
	}
	if agentID != nil && *agentID != "" && !IsPathSegment(*agentID) {
		return nil, fmt.Errorf("%w: agent id %q is not a single path segment", models.ErrInvalidInput, *agentID)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat written file %s: %w", finalPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", models.ErrInvalidInput, finalPath)
	}

	mimeType, err := detectMIME(finalPath)
	if err != nil {
		return nil, err
	}

	res := &models.Resource{
		ID:          uuid.New(),
		Name:        fileName,
		Path:        finalPath,
		StorageType: h.storageType,
		Channel:     channel,
		Size:        info.Size(),
		Type:        mimeType,
		AgentID:     agentID,
		CreatedAt:   h.now().UTC(),
	}
	if h.storageType == models.StorageTypeS3 {
		res.Path = ObjectKey(fileName, agentID)
	}
	return res, nil
}

func detectMIME(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	ct := http.DetectContentType(head[:n])
	if ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(p)); byExt != "" {
			return byExt, nil
		}
	}
	return ct, nil
}
