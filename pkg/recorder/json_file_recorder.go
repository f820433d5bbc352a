package recorder

import (
	"context"
	"os"
	"sync"

	json "github.com/goccy/go-json"
)

// JSON 文件记录器，kafka未配置时的本地决策审计流
// 一行一条记录，方便jq/grep排查
type JSONFileRecorder struct {
	mu   sync.Mutex
	path string
}

func NewJSONFileRecorder(path string) *JSONFileRecorder {
	return &JSONFileRecorder{path: path}
}

func (r *JSONFileRecorder) Produce(_ context.Context, _ []byte, msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

func (r *JSONFileRecorder) Close() {}
