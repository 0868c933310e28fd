package router

import "net/url"

// NavigateOption configures Navigate.
type NavigateOption func(*navigateOptions)

type navigateOptions struct {
	replace            *bool
	state              any
	preventScrollReset bool
	formMethod         string
	formEncType        string
	formData           *FormData
	relativePath       bool
	routeID            string
}

// WithReplace replaces the current history entry instead of pushing.
// Passing false forces a push even for a submission to the current URL.
func WithReplace(replace bool) NavigateOption {
	return func(o *navigateOptions) {
		o.replace = &replace
	}
}

// WithState attaches state to the new history entry.
func WithState(state any) NavigateOption {
	return func(o *navigateOptions) {
		o.state = state
	}
}

// WithPreventScrollReset asks the UI to keep the scroll position.
func WithPreventScrollReset() NavigateOption {
	return func(o *navigateOptions) {
		o.preventScrollReset = true
	}
}

// WithFormMethod sets the submission method. It defaults to GET when
// form data is given.
func WithFormMethod(method string) NavigateOption {
	return func(o *navigateOptions) {
		o.formMethod = method
	}
}

// WithFormEncType sets the submission encoding. It defaults to
// EncTypeURLEncoded.
func WithFormEncType(encType string) NavigateOption {
	return func(o *navigateOptions) {
		o.formEncType = encType
	}
}

// WithFormData turns the navigation into a submission of data.
func WithFormData(data *FormData) NavigateOption {
	return func(o *navigateOptions) {
		o.formData = data
	}
}

// WithFormValues is WithFormData for text fields only.
func WithFormValues(values url.Values) NavigateOption {
	return WithFormData(NewFormData(values))
}

// WithRelativePath resolves relative targets against the current URL
// pathname instead of the route hierarchy.
func WithRelativePath() NavigateOption {
	return func(o *navigateOptions) {
		o.relativePath = true
	}
}

// FetchOption configures Fetch. Navigate options that make sense for a
// fetcher (form fields, relative path, scroll reset) are accepted too.
type FetchOption = NavigateOption

// WithRouteID names the route the fetcher belongs to. Relative hrefs
// resolve against it and submission errors are raised at its nearest
// error boundary.
func WithRouteID(id string) FetchOption {
	return func(o *navigateOptions) {
		o.routeID = id
	}
}
