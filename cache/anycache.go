// Package cache 带过期时间的泛型缓存
package cache

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xyzj/cherrybot/loopfunc"
)

type cData[T any] struct {
	expire time.Time
	data   T
}

// AnyCache 泛型结构缓存，每次访问可延长有效期
type AnyCache[T any] struct {
	locker       sync.RWMutex
	cache        map[string]*cData[T]
	cacheCleanup *time.Ticker
	cacheExpire  time.Duration
	expireFunc   func(map[string]T)
	closed       atomic.Bool
	closeChan    chan struct{}
}

// NewAnyCacheWithExpireFunc initializes a new cache with a specified expiration time and an optional expiration function.
// The cache will create a goroutine to periodically check for expired entries.
// When the cache is no longer needed, it should be closed using the Close() method.
//
// Parameters:
//   - expire: The duration for which cache entries should be considered valid.
//   - expireFunc: An optional function to be executed when cache entries expire.
//     The function will receive a map of expired entries, where the key is the entry key and the value is the entry data.
func NewAnyCacheWithExpireFunc[T any](expire time.Duration, expireFunc func(map[string]T)) *AnyCache[T] {
	x := &AnyCache[T]{
		cacheExpire:  expire,
		cache:        make(map[string]*cData[T]),
		cacheCleanup: time.NewTicker(time.Minute),
		expireFunc:   expireFunc,
		closeChan:    make(chan struct{}),
	}
	go loopfunc.LoopFunc(func() {
		for {
			select {
			case <-x.closeChan:
				return
			case <-x.cacheCleanup.C:
				x.cleanup(time.Now())
			}
		}
	}, "any cache", os.Stdout)
	return x
}

// NewAnyCache initializes a new cache with a specified expiration time.
func NewAnyCache[T any](expire time.Duration) *AnyCache[T] {
	return NewAnyCacheWithExpireFunc[T](expire, nil)
}

func (ac *AnyCache[T]) cleanup(tnow time.Time) {
	ex := make(map[string]T)
	ac.locker.Lock()
	for k, v := range ac.cache {
		if tnow.After(v.expire) {
			ex[k] = v.data
			delete(ac.cache, k)
		}
	}
	ac.locker.Unlock()
	if len(ex) > 0 && ac.expireFunc != nil {
		loopfunc.GoFunc(func() {
			ac.expireFunc(ex)
		}, "expire func", os.Stdout)
	}
}

// SetCleanUp sets the cleanup period for the cache, not less than 1 second.
func (ac *AnyCache[T]) SetCleanUp(cleanup time.Duration) {
	if cleanup < time.Second {
		cleanup = time.Second
	}
	ac.cacheCleanup.Reset(cleanup)
}

// Close stops the cleanup goroutine and drops every entry without calling the expire func.
func (ac *AnyCache[T]) Close() {
	if !ac.closed.CompareAndSwap(false, true) {
		return
	}
	ac.cacheCleanup.Stop()
	close(ac.closeChan)
	ac.locker.Lock()
	clear(ac.cache)
	ac.locker.Unlock()
}

// Len returns the number of entries in the cache, expired ones not yet cleaned included.
func (ac *AnyCache[T]) Len() int {
	ac.locker.RLock()
	defer ac.locker.RUnlock()
	return len(ac.cache)
}

// Extension extends the expiration time of the specified cache entry by the cache's default expiration duration.
func (ac *AnyCache[T]) Extension(key string) {
	ac.locker.Lock()
	if x, ok := ac.cache[key]; ok {
		x.expire = time.Now().Add(ac.cacheExpire)
	}
	ac.locker.Unlock()
}

// Store adds a cache entry with the specified key and value.
// If the cache is already closed, it returns an error.
func (ac *AnyCache[T]) Store(key string, value T) error {
	if ac.closed.Load() {
		return fmt.Errorf("cache is closed")
	}
	ac.locker.Lock()
	ac.cache[key] = &cData[T]{
		expire: time.Now().Add(ac.cacheExpire),
		data:   value,
	}
	ac.locker.Unlock()
	return nil
}

// Load retrieves the value associated with the given key from the cache.
// If the key is not found or the entry has expired, it returns the zero value of type T and false.
func (ac *AnyCache[T]) Load(key string) (T, bool) {
	var x T
	if ac.closed.Load() {
		return x, false
	}
	ac.locker.RLock()
	v, ok := ac.cache[key]
	ac.locker.RUnlock()
	if !ok || time.Now().After(v.expire) {
		return x, false
	}
	return v.data, true
}

// LoadOrStore returns the cached value and true when the key exists,
// otherwise stores value and returns it with false.
func (ac *AnyCache[T]) LoadOrStore(key string, value T) (T, bool) {
	var x T
	if ac.closed.Load() {
		return x, false
	}
	ac.locker.Lock()
	defer ac.locker.Unlock()
	if v, ok := ac.cache[key]; ok && !time.Now().After(v.expire) {
		return v.data, true
	}
	ac.cache[key] = &cData[T]{
		expire: time.Now().Add(ac.cacheExpire),
		data:   value,
	}
	return value, false
}

// Delete removes a cache entry and returns its value, the expire func is not called.
func (ac *AnyCache[T]) Delete(key string) (T, bool) {
	var x T
	ac.locker.Lock()
	defer ac.locker.Unlock()
	v, ok := ac.cache[key]
	if !ok {
		return x, false
	}
	delete(ac.cache, key)
	return v.data, true
}

// ForEach iterates over the live entries, stop when f returns false.
func (ac *AnyCache[T]) ForEach(f func(key string, value T) bool) {
	tnow := time.Now()
	ac.locker.RLock()
	items := make(map[string]T, len(ac.cache))
	for k, v := range ac.cache {
		if !tnow.After(v.expire) {
			items[k] = v.data
		}
	}
	ac.locker.RUnlock()
	for k, v := range items {
		if !f(k, v) {
			return
		}
	}
}
