// Package cache はTTL付きキー/バリューキャッシュを提供する。
//
// キャッシュは永続ストアから独立した純粋な性能最適化であり、
// 全エントリが消失してもローカルカタログの整合性には影響しない。
// 複数サーバーインスタンスから共有されるため、実装は外部ストア（Redis）を使用する。
package cache

import (
	"context"
	"time"
)

// Store はTTL付きキャッシュストアのインターフェース。
type Store interface {
	// Get は指定キーの値を取得する。
	// 未登録または期限切れの場合は (nil, false, nil) を返す。
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set は指定キーに値をTTL付きで保存する。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
