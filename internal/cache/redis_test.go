package cache

import "testing"

// RedisStoreがStoreインターフェースを満たすことをコンパイル時に保証する。
var _ Store = (*RedisStore)(nil)

// TestNewRedisStore は接続確認なしでインスタンスが生成されることを検証する。
func TestNewRedisStore(t *testing.T) {
	store := NewRedisStore("localhost:6379", "")
	if store == nil {
		t.Fatal("NewRedisStore returned nil")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
