package tasks

import (
	"context"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/indexing"
)

func (w *Worker) registerBuiltins(deps Deps) {
	if idx := deps.Indexer; idx != nil {
		w.Register(NameCreateDocument, w.createDocument(idx))
		w.Register(NameUpdatePartial, updatePartial(idx))
		w.Register(NameIncrementField, incrementField(idx))
		w.Register(NameUpdateFieldValuesByQuery, updateByQuery(idx))
		w.Register(NameDeleteDocument, deleteDocument(idx))
		w.Register(NameIndexPostWithComments, func(ctx context.Context, t Task) error {
			var args PostArgs
			if err := t.DecodeArgs(&args); err != nil {
				return permanent(err)
			}
			return idx.IndexPostWithComments(ctx, args.PostID)
		})
	}

	if p := deps.Profiles; p != nil {
		w.Register(NameUpsertProfile, func(ctx context.Context, t Task) error {
			var args ProfileArgs
			if err := t.DecodeArgs(&args); err != nil {
				return permanent(err)
			}
			return p.UpsertProfile(ctx, args.Username)
		})
	}

	if c := deps.Catalog; c != nil {
		for name, method := range map[string]func(CatalogIndexer, context.Context, int64) error{
			NameUpsertCourse:          CatalogIndexer.UpsertCourse,
			NameUpsertProgram:         CatalogIndexer.UpsertProgram,
			NameUpsertVideo:           CatalogIndexer.UpsertVideo,
			NameUpsertUserList:        CatalogIndexer.UpsertUserList,
			NameUpsertContentFile:     CatalogIndexer.UpsertContentFile,
			NameUpsertBootcamp:        CatalogIndexer.UpsertBootcamp,
			NameIndexNewBootcamp:      CatalogIndexer.IndexNewBootcamp,
			NameIndexRunContentFiles:  CatalogIndexer.IndexRunContentFiles,
			NameDeleteRunContentFiles: CatalogIndexer.DeleteRunContentFiles,
		} {
			w.Register(name, recordHandler(c, method))
		}
	}

	if r := deps.Rebuilder; r != nil {
		w.Register(NameRecreateIndex, func(ctx context.Context, _ Task) error {
			report, err := r.Rebuild(ctx)
			if err != nil {
				return err
			}
			w.log.Info("Index recreated",
				logger.String("index", report.BackingIndex),
				logger.Any("documents", report.Documents),
			)
			return nil
		})
	}
}

// createDocument treats an existing document as done, so a redelivered
// create is idempotent.
func (w *Worker) createDocument(idx DocumentIndexer) Handler {
	return func(ctx context.Context, t Task) error {
		var args CreateDocumentArgs
		objectType, err := decodeDocument(t, &args, &args.DocumentArgs)
		if err != nil {
			return err
		}

		err = idx.CreateDocument(ctx, args.DocID, objectType, args.Data, routing(args.DocumentArgs)...)
		if indexing.IsConflict(err) {
			w.log.Warn("Document already exists", logger.String("doc_id", args.DocID))
			return nil
		}
		return err
	}
}

func updatePartial(idx DocumentIndexer) Handler {
	return func(ctx context.Context, t Task) error {
		var args UpdatePartialArgs
		objectType, err := decodeDocument(t, &args, &args.DocumentArgs)
		if err != nil {
			return err
		}

		opts := routing(args.DocumentArgs)
		if args.RetryOnConflict > 0 {
			opts = append(opts, indexing.WithRetryOnConflict(args.RetryOnConflict))
		}
		return idx.UpdateDocumentPartial(ctx, args.DocID, args.Fields, objectType, opts...)
	}
}

func incrementField(idx DocumentIndexer) Handler {
	return func(ctx context.Context, t Task) error {
		var args IncrementArgs
		objectType, err := decodeDocument(t, &args, &args.DocumentArgs)
		if err != nil {
			return err
		}
		opts := routing(args.DocumentArgs)
		if args.RetryOnConflict > 0 {
			opts = append(opts, indexing.WithRetryOnConflict(args.RetryOnConflict))
		}
		return idx.IncrementIntegerField(ctx, args.DocID, args.Field, args.Amount, objectType, opts...)
	}
}

func updateByQuery(idx DocumentIndexer) Handler {
	return func(ctx context.Context, t Task) error {
		var args UpdateByQueryArgs
		if err := t.DecodeArgs(&args); err != nil {
			return permanent(err)
		}
		objectTypes, err := document.ParseObjectTypes(args.ObjectTypes)
		if err != nil {
			return permanent(err)
		}
		return idx.UpdateFieldValuesByQuery(ctx, args.Query, args.FieldValues, objectTypes)
	}
}

func deleteDocument(idx DocumentIndexer) Handler {
	return func(ctx context.Context, t Task) error {
		var args DocumentArgs
		objectType, err := decodeDocument(t, &args, &args)
		if err != nil {
			return err
		}
		return idx.DeleteDocument(ctx, args.DocID, objectType, routing(args)...)
	}
}

func recordHandler(c CatalogIndexer, method func(CatalogIndexer, context.Context, int64) error) Handler {
	return func(ctx context.Context, t Task) error {
		var args RecordArgs
		if err := t.DecodeArgs(&args); err != nil {
			return permanent(err)
		}
		return method(c, ctx, args.ID)
	}
}

func decodeDocument(t Task, out any, doc *DocumentArgs) (document.ObjectType, error) {
	if err := t.DecodeArgs(out); err != nil {
		return "", permanent(err)
	}
	objectType, err := doc.Type()
	if err != nil {
		return "", permanent(err)
	}
	return objectType, nil
}

func routing(args DocumentArgs) []indexing.DocOption {
	if args.Routing == "" {
		return nil
	}
	return []indexing.DocOption{indexing.WithRouting(args.Routing)}
}
