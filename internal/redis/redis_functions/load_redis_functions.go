package redis_functions

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:embed *.lua
var fs embed.FS

// Library returns the source of an embedded library, e.g. "liveauction".
func Library(name string) (string, error) {
	code, err := fs.ReadFile(name + ".lua")
	if err != nil {
		return "", fmt.Errorf("read lua %s: %w", name, err)
	}
	return string(code), nil
}

// LoadAll finds every embedded Lua library and loads/replaces it in Redis.
// It must run before the first bid so that FCALL targets exist.
func LoadAll(ctx context.Context, rdb redis.Cmdable) error {
	files, err := fs.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read embed dir: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".lua") {
			continue
		}

		code, err := fs.ReadFile(f.Name())
		if err != nil {
			return err
		}
		lib, err := rdb.FunctionLoadReplace(ctx, string(code)).Result()
		if err != nil {
			return fmt.Errorf("load lua %s: %w", f.Name(), err)
		}
		zap.L().Info("lua library loaded", zap.String("file", f.Name()), zap.String("library", lib))
	}
	return nil
}
