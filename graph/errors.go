package graph

import (
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/apperr"
)

// resolverError is what resolvers hand back to graphql-go. Store failures
// are logged and masked; other kinds surface their message as is.
type resolverError struct {
	kind apperr.Kind
	msg  string
}

func (e *resolverError) Error() string {
	return e.msg
}

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.kind.String()}
}

func (r *resolver) fail(field string, err error) error {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict:
		return &resolverError{kind: kind, msg: apperr.Message(err)}
	}
	r.logger.Error("resolver failed", zap.String("field", field), zap.Error(err))
	return &resolverError{kind: apperr.KindStore, msg: "Internal server error"}
}
