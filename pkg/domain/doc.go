/*
Package domain contains the core domain models of the variant configurator.

It defines the catalog shapes exchanged with the catalog backend and the per-user
session record driven by the wizard. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - TemplateSummary, Attribute, Value: the read-only catalog of a configurable template.
  - Selection: one chosen value for one attribute.
  - VariantInfo: a concrete variant of a template, active or archived.
  - Session: the explicit state record of one user's progress through the wizard.
*/
package domain
