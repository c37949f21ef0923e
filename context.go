package authkit

import "context"

type localeContextKey struct{}
type deviceIDContextKey struct{}

// WithLocale overrides the configured message locale for calls made with ctx.
func WithLocale(ctx context.Context, locale Locale) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// WithDeviceID tags calls made with ctx with a caller-chosen device or tab
// identifier. It is recorded in audit metadata only.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey{}, deviceID)
}

func localeFromContext(ctx context.Context, fallback Locale) Locale {
	if ctx == nil {
		return fallback
	}

	locale, _ := ctx.Value(localeContextKey{}).(Locale)
	if locale == "" {
		return fallback
	}
	return locale
}

func deviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	deviceID, _ := ctx.Value(deviceIDContextKey{}).(string)
	return deviceID
}
