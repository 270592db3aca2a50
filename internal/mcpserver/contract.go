package mcpserver

// StructureRules describes how course structures may be edited. LLM
// consumers should read it before moving chapters or lessons.
const StructureRules = `# LearnVex Course Structure Rules

A course is an ordered list of chapters. Each chapter holds an ordered list
of lessons. Positions are 1-based and dense within each list.

## Moving items

Use the ` + "`move_item`" + ` tool with the id of the item to move and the id
of the item it is dropped onto. The moved item takes the target's index and
the items in between shift by one.

1. **Chapters** may be dropped onto another chapter or onto any lesson. A
   lesson target stands for the chapter that owns it.
2. **Lessons** may only be dropped onto another lesson of the **same**
   chapter. Moving a lesson into a different chapter is rejected.
3. Dropping an item onto itself, or omitting the target, changes nothing.
4. Every move is applied immediately and then saved. If saving fails the
   structure is restored to what it was right before the move and the tool
   reports an error.
5. Moves on the same course run one after another, in the order they were
   issued.

## Other tools

- ` + "`get_course_structure`" + ` returns the current tree as JSON.
- ` + "`toggle_chapter`" + ` expands or collapses a chapter. It is display-only
  and never saved.
- ` + "`reload_structure`" + ` discards the local view and loads the saved tree.
- ` + "`request_upload`" + ` returns a presigned URL for a thumbnail or video. PUT
  the file to it within six minutes and store the returned key on the lesson.
`
