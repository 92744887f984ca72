package cache

import (
	"sync"
	"time"
)

// ============================================================================
// CACHE SERVICE - IN-MEMORY CACHING CON TTL
// ============================================================================
// Implementación de caché thread-safe con expiración automática.
// Usado para listas de archivos por usuario y para entradas de lockout del
// master password (el TTL de la entrada es el cooldown del lockout).
//
// Uso:
//   cache := NewCache(2*time.Minute, 5*time.Minute)
//   cache.Set("files:42", fileList)
//   if data, found := cache.Get("files:42"); found {
//       return data
//   }

// CacheItem representa un elemento en caché con timestamp de expiración
type CacheItem struct {
	Value      interface{}
	Expiration int64 // Unix timestamp
}

// Cache es un almacén thread-safe de key-value con TTL
type Cache struct {
	items             map[string]CacheItem
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	stopCleanup       chan bool
}

// NewCache crea una nueva instancia de caché con TTL por defecto
// cleanupInterval ejecuta limpieza periódica de items expirados
func NewCache(defaultExpiration, cleanupInterval time.Duration) *Cache {
	cache := &Cache{
		items:             make(map[string]CacheItem),
		defaultExpiration: defaultExpiration,
		cleanupInterval:   cleanupInterval,
		stopCleanup:       make(chan bool),
	}

	go cache.startCleanupTimer()

	return cache
}

// Set almacena un valor con la expiración por defecto
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultExpiration)
}

// SetWithTTL almacena un valor con una duración de expiración específica
func (c *Cache) SetWithTTL(key string, value interface{}, duration time.Duration) {
	var expiration int64

	if duration > 0 {
		expiration = time.Now().Add(duration).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = CacheItem{
		Value:      value,
		Expiration: expiration,
	}
	c.mu.Unlock()
}

// Get recupera un valor del caché
// Retorna (valor, true) si existe y no ha expirado
// Retorna (nil, false) si no existe o ha expirado
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return nil, false
	}

	if item.Expiration > 0 && time.Now().UnixNano() > item.Expiration {
		c.Delete(key)
		return nil, false
	}

	return item.Value, true
}

// Delete elimina un key del caché
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix elimina todas las keys que empiezan con el prefijo dado
// Útil para invalidar grupos de caché (ej: "files:" invalida todas las listas)
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.items {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.items, key)
			count++
		}
	}
	return count
}

// Clear limpia completamente el caché
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]CacheItem)
	c.mu.Unlock()
}

// Count retorna el número de items en caché (incluye expirados)
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CacheStats retorna estadísticas del caché
type CacheStats struct {
	TotalItems   int
	ExpiredItems int
	ValidItems   int
}

// GetStats retorna estadísticas actuales del caché
func (c *Cache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		TotalItems: len(c.items),
	}

	now := time.Now().UnixNano()
	for _, item := range c.items {
		if item.Expiration > 0 && now > item.Expiration {
			stats.ExpiredItems++
		} else {
			stats.ValidItems++
		}
	}

	return stats
}

// startCleanupTimer ejecuta limpieza periódica de items expirados
func (c *Cache) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// deleteExpired elimina todos los items expirados
func (c *Cache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, item := range c.items {
		if item.Expiration > 0 && now > item.Expiration {
			delete(c.items, key)
		}
	}
}

// Stop detiene la limpieza automática
func (c *Cache) Stop() {
	c.stopCleanup <- true
}

// ============================================================================
// CACHE PRESETS - CACHÉS PRE-CONFIGURADOS
// ============================================================================

var (
	// FilesCache - Caché de listas de archivos por usuario (TTL: 2 minutos)
	// Se invalida con DeletePrefix("files:") al subir un archivo nuevo
	FilesCache *Cache

	// LockoutCache - Entradas de lockout del master password
	// El TTL de cada entrada es el cooldown configurado del lock
	LockoutCache *Cache
)

// InitCaches inicializa todos los cachés con configuraciones por defecto
func InitCaches() {
	// Listas de archivos: 2min TTL, limpieza cada 5min
	FilesCache = NewCache(2*time.Minute, 5*time.Minute)

	// Lockouts: sin TTL por defecto (cada entrada trae el suyo), limpieza cada 1min
	LockoutCache = NewCache(0, 1*time.Minute)
}

// StopCaches detiene todos los cachés
func StopCaches() {
	if FilesCache != nil {
		FilesCache.Stop()
	}
	if LockoutCache != nil {
		LockoutCache.Stop()
	}
}
